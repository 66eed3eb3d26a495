package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// TestNewModes verifies both logger modes build.
func TestNewModes(t *testing.T) {
	for _, mode := range []string{"release", "debug", ""} {
		l, err := New(mode, false)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", mode, err)
		}
		if l == nil {
			t.Fatalf("New(%q) returned nil logger", mode)
		}
	}
}

// TestDebugLevel verifies the debug switch lowers the level.
func TestDebugLevel(t *testing.T) {
	l, err := New("release", true)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ce := l.Check(zapcore.DebugLevel, "check"); ce == nil {
		t.Error("Expected debug entries to be enabled")
	}
}

// TestOrNop verifies a nil logger is replaced.
func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("Expected non-nil logger")
	}
}
