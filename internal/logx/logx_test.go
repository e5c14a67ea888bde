package logx

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func newCapturingLogger(enabled bool) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{enabled: enabled, out: log.New(&buf, "", 0)}, &buf
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	l, buf := newCapturingLogger(false)
	l.Info("eviction", "evicted a key", Fields{"hash": "a"})

	if buf.Len() != 0 {
		t.Fatalf("expected a disabled logger to write nothing, got %q", buf.String())
	}
	if l.Enabled() {
		t.Fatal("Enabled() = true for a disabled logger")
	}
}

func TestEnabledLoggerIncludesLevelComponentAndFields(t *testing.T) {
	l, buf := newCapturingLogger(true)
	l.Warn("swr", "refresh failed", Fields{"hash": "ticket:1"})

	out := buf.String()
	for _, want := range []string{"WARN", "component=swr", "msg=\"refresh failed\"", "hash=ticket:1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %q", out, want)
		}
	}
}

func TestLogGeneratesOpIDWhenAbsent(t *testing.T) {
	l, buf := newCapturingLogger(true)
	l.Info("warming", "cycle complete", nil)

	if !strings.Contains(buf.String(), "op_id=") {
		t.Fatalf("expected a generated op_id in output, got %q", buf.String())
	}
}

func TestLogPreservesSuppliedOpID(t *testing.T) {
	l, buf := newCapturingLogger(true)
	l.Info("warming", "cycle complete", Fields{"op_id": "fixed-id"})

	if !strings.Contains(buf.String(), "op_id=fixed-id") {
		t.Fatalf("expected the supplied op_id to be preserved, got %q", buf.String())
	}
}

func TestNilLoggerIsANoOp(t *testing.T) {
	var l *Logger
	l.Info("eviction", "should not panic", nil)
	if l.Enabled() {
		t.Fatal("Enabled() = true for a nil logger")
	}
}
