package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range tests {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not one JSON entry: %v (%q)", err, buf.String())
	}
	return entry
}

func TestLogger_DefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.0", &buf)
	logger.Info("gateway attached", "gateway", "living-room")

	entry := decode(t, &buf)
	want := map[string]string{
		"service": ServiceName,
		"version": "1.2.0",
		"msg":     "gateway attached",
		"gateway": "living-room",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Errorf("entry[%q] = %v, want %q", key, entry[key], value)
		}
	}
}

func TestLogger_WithKeepsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(config.LoggingConfig{Format: "json"}, "v", &buf).With("gateway", "kitchen")
	logger.Warn("gateway unreachable")

	entry := decode(t, &buf)
	if entry["gateway"] != "kitchen" || entry["service"] != ServiceName {
		t.Errorf("entry = %v, want gateway and service attributes", entry)
	}
}

func TestLogger_TextFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(config.LoggingConfig{Level: "warn", Format: "text"}, "v", &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry written at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") {
		t.Errorf("warn entry missing or not text formatted: %q", out)
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("dropped", "key", "value")
}
