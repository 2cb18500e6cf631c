package trace

import (
	"fmt"
	"strings"
)

// Level is the finest Scope a tracer records. Each level admits its own
// scope and every coarser one.
type Level uint8

const (
	LevelOff   Level = 0
	LevelPhase       = Level(ScopePass)
	LevelFile        = Level(ScopeFile)
	LevelOp          = Level(ScopeOp)
)

var levelNames = map[string]Level{
	"":      LevelOff,
	"off":   LevelOff,
	"phase": LevelPhase,
	"file":  LevelFile,
	"op":    LevelOp,
}

// ParseLevel reads the --trace-level value.
func ParseLevel(s string) (Level, error) {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l, nil
	}
	return LevelOff, fmt.Errorf("unknown trace level %q (want off, phase, file or op)", s)
}

// ShouldEmit reports whether events of scope are recorded at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	return l != LevelOff && scope <= Scope(l)
}
