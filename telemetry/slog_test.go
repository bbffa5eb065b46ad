package telemetry

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogHandlerWritesToConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(&buf, nil))
	logger.Info("recovery:entered", slog.String("addr", "10.0.0.5"))
	out := buf.String()
	if !strings.Contains(out, "recovery:entered") || !strings.Contains(out, "10.0.0.5") {
		t.Fatalf("unexpected console output: %q", out)
	}
}

func TestSlogHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(&buf, nil)).
		With(slog.String("component", "recovery")).
		WithGroup("session")
	logger.Warn("verify-failed")
	out := buf.String()
	if !strings.Contains(out, "component=recovery") || !strings.Contains(out, "verify-failed") {
		t.Fatalf("unexpected console output: %q", out)
	}
}
