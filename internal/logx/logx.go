// Package logx provides the structured, correlation-id-tagged debug logger
// shared by the eviction engine, the stale-while-revalidate coordinator, and
// the cache warmer. It is a thin wrapper over the standard log package and
// does nothing when disabled, so the hot path never pays for formatting.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Level is a log severity.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger writes leveled, structured-field log lines. The zero value is a
// disabled logger (every call is a no-op), so components can embed a Logger
// by value and skip nil checks.
type Logger struct {
	mu      sync.Mutex
	enabled bool
	out     *log.Logger
}

// New returns a Logger that writes to os.Stderr when enabled is true, and
// discards every call when enabled is false.
func New(enabled bool) *Logger {
	return &Logger{
		enabled: enabled,
		out:     log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	}
}

// Enabled reports whether this logger will produce output.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Fields is a set of structured key/value pairs attached to a log line.
type Fields map[string]interface{}

// Log emits one structured line at the given level. The operation id is a
// fresh UUID when the caller does not supply one via Fields["op_id"],
// matching the correlation-id convention used across components.
func (l *Logger) Log(level Level, component, message string, fields Fields) {
	if l == nil || !l.enabled {
		return
	}

	opID, ok := fields["op_id"].(string)
	if !ok || opID == "" {
		opID = uuid.NewString()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] component=%s op_id=%s msg=%q", level, component, opID, message)
	for k, v := range fields {
		if k == "op_id" {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", k, v)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Println(b.String())
}

func (l *Logger) Info(component, message string, fields Fields)  { l.Log(LevelInfo, component, message, fields) }
func (l *Logger) Warn(component, message string, fields Fields)  { l.Log(LevelWarn, component, message, fields) }
func (l *Logger) Error(component, message string, fields Fields) { l.Log(LevelError, component, message, fields) }
