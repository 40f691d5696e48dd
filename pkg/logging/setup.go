// Package logging builds the CLI's zap logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	prettyconsole "github.com/thessem/zap-prettyconsole"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// LevelEnv overrides module levels, eg. "dynamodb=debug,synth=warn".
const LevelEnv = "CONSTRUCT_LOG_LEVEL"

type Options struct {
	Verbose bool
	// Color is one of auto, always or never.
	Color string
	JSON  bool
	// Levels sets the minimum level per logger name prefix.
	Levels map[string]zapcore.Level
}

func (opts Options) useColor(w io.Writer) bool {
	switch opts.Color {
	case "always", "on":
		return true
	case "never", "off":
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (opts Options) encoder(w io.Writer) zapcore.Encoder {
	if opts.JSON {
		cfg := zap.NewProductionEncoderConfig()
		if opts.Verbose {
			cfg = zap.NewDevelopmentEncoderConfig()
		}
		return zapcore.NewJSONEncoder(cfg)
	}
	color := opts.useColor(w)
	if color {
		cfg := prettyconsole.NewEncoderConfig()
		cfg.EncodeTime = TimeOffsetFormatter(time.Now(), true)
		return prettyconsole.NewEncoder(cfg)
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = TimeOffsetFormatter(time.Now(), false)
	return zapcore.NewConsoleEncoder(cfg)
}

// NewCore returns a core writing to w. Module levels from [LevelEnv] take precedence over
// opts.Levels.
func (opts Options) NewCore(w io.Writer) zapcore.Core {
	level := zap.InfoLevel
	if opts.Verbose {
		level = zap.DebugLevel
	}
	core := zapcore.NewCore(opts.encoder(w), zapcore.AddSync(w), level)

	levels := opts.Levels
	if env, ok := os.LookupEnv(LevelEnv); ok {
		parsed, err := ParseLevels(env)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ignoring %s: %v\n", LevelEnv, err)
		} else {
			levels = parsed
		}
	}
	if len(levels) > 0 {
		core = NewEntryLeveller(core, levels)
	}
	return core
}

func (opts Options) NewLogger() *zap.Logger {
	return zap.New(opts.NewCore(os.Stderr))
}

// ParseLevels parses a comma separated list of module=level pairs.
func ParseLevels(s string) (map[string]zapcore.Level, error) {
	levels := make(map[string]zapcore.Level)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		module, lvl, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected module=level, got %q", pair)
		}
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, err
		}
		levels[module] = level
	}
	return levels, nil
}

// TimeOffsetFormatter formats entry times as the time elapsed since start.
func TimeOffsetFormatter(start time.Time, color bool) zapcore.TimeEncoder {
	colStart, colEnd := "\x1b[90m", "\x1b[0m"
	if !color {
		colStart, colEnd = "", ""
	}
	return func(t time.Time, e zapcore.PrimitiveArrayEncoder) {
		d := t.Sub(start)
		var s string
		switch {
		case d < time.Second:
			s = fmt.Sprintf(" %3dms", d.Milliseconds())
		case d < 5*time.Minute:
			s = fmt.Sprintf("%5.1fs", d.Seconds())
		default:
			s = fmt.Sprintf("%5.1fm", d.Minutes())
		}
		e.AppendString(colStart + s + colEnd)
	}
}
