package clicommon

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/klothoplatform/constructs/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type CommonConfig struct {
	Verbose   bool
	JSONLog   bool
	Color     string
	LogLevels string
	profileTo string

	hadWarnings *atomic.Bool
	hadErrors   *atomic.Bool
}

// HadWarnings reports whether a warning was logged during the command.
func (cfg *CommonConfig) HadWarnings() bool {
	return cfg.hadWarnings != nil && cfg.hadWarnings.Load()
}

// HadErrors reports whether an error was logged during the command.
func (cfg *CommonConfig) HadErrors() bool {
	return cfg.hadErrors != nil && cfg.hadErrors.Load()
}

func setupProfiling(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to start profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close() //nolint:errcheck
	}, nil
}

// SetupRoot adds the logging and profiling flags to root and installs the global logger before
// any subcommand runs. The logger is also stored in the command's context.
func SetupRoot(root *cobra.Command, cfg *CommonConfig) {
	cfg.hadWarnings = atomic.NewBool(false)
	cfg.hadErrors = atomic.NewBool(false)

	flags := root.PersistentFlags()
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&cfg.JSONLog, "json-log", false, "Enable JSON logging")
	flags.StringVar(&cfg.Color, "color", "auto", "Colorize console logs: auto, always or never")
	flags.StringVar(&cfg.LogLevels, "log-level", "", "Per module log levels, eg. dynamodb=debug,synth=warn")
	flags.StringVar(&cfg.profileTo, "profiling", "", "Profile to file")

	profileClose := func() {}

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		opts := logging.Options{
			Verbose: cfg.Verbose,
			JSON:    cfg.JSONLog,
			Color:   cfg.Color,
		}
		if cfg.LogLevels != "" {
			levels, err := logging.ParseLevels(cfg.LogLevels)
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			opts.Levels = levels
		}
		log := opts.NewLogger().WithOptions(zap.Hooks(func(e zapcore.Entry) error {
			switch {
			case e.Level >= zapcore.ErrorLevel:
				cfg.hadErrors.Store(true)
			case e.Level == zapcore.WarnLevel:
				cfg.hadWarnings.Store(true)
			}
			return nil
		}))
		zap.ReplaceGlobals(log)
		cmd.SetContext(logging.WithLogger(cmd.Context(), log))

		var err error
		profileClose, err = setupProfiling(cfg.profileTo)
		return err
	}

	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		zap.L().Sync() //nolint:errcheck
		profileClose()
	}
}
