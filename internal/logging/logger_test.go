package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_SubsystemPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false).With("state")

	l.Info("loaded %d ids", 3)

	if !strings.Contains(buf.String(), "[state] loaded 3 ids") {
		t.Errorf("unexpected log line: %q", buf.String())
	}
}

func TestLogger_DebugGated(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written with debug disabled: %q", buf.String())
	}

	l = New(&buf, true)
	l.Debug("shown")
	if !strings.Contains(buf.String(), "DEBUG [main] shown") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("line one\nline two", 8); got != "line one..." {
		t.Errorf("Truncate multi-line = %q", got)
	}
}
