package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// EntryLeveller filters entries by logger name. A level set for "dynamodb" applies to
// "dynamodb.replica" unless that name has a level of its own. Names with no matching module
// fall through to the wrapped core's level.
type EntryLeveller struct {
	zapcore.Core

	levels map[string]zapcore.Level
	// resolved caches the module lookup per logger name.
	resolved *sync.Map
}

func NewEntryLeveller(core zapcore.Core, levels map[string]zapcore.Level) *EntryLeveller {
	copied := make(map[string]zapcore.Level, len(levels))
	for k, v := range levels {
		copied[k] = v
	}
	return &EntryLeveller{Core: core, levels: copied, resolved: &sync.Map{}}
}

func (el *EntryLeveller) With(f []zapcore.Field) zapcore.Core {
	return &EntryLeveller{Core: el.Core.With(f), levels: el.levels, resolved: el.resolved}
}

// levelFor returns the level of the closest configured module of name.
func (el *EntryLeveller) levelFor(name string) (zapcore.Level, bool) {
	type result struct {
		level zapcore.Level
		ok    bool
	}
	if r, ok := el.resolved.Load(name); ok {
		return r.(result).level, r.(result).ok
	}
	module := name
	for {
		if lvl, ok := el.levels[module]; ok {
			el.resolved.Store(name, result{level: lvl, ok: true})
			return lvl, true
		}
		if module == "" {
			break
		}
		if i := strings.LastIndexByte(module, '.'); i >= 0 {
			module = module[:i]
		} else {
			module = ""
		}
	}
	el.resolved.Store(name, result{})
	return 0, false
}

func (el *EntryLeveller) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	lvl, ok := el.levelFor(e.LoggerName)
	if !ok {
		return el.Core.Check(e, ce)
	}
	if e.Level < lvl {
		return ce
	}
	return ce.AddCore(e, el)
}
