package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerEmitsJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "info", Writer: &buf, Component: "gateway"})
	lg.Info("kernel removed", "kernel_id", "k1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	if entry["component"] != "gateway" {
		t.Fatalf("missing component attribute: %v", entry)
	}
	if entry["kernel_id"] != "k1" {
		t.Fatalf("missing kernel_id attribute: %v", entry)
	}
}

func TestNewLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "info", Format: "text", Writer: &buf})
	lg.Info("hello")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected text output, got %s", buf.String())
	}
}

func TestNewLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "warn", Writer: &buf})
	lg.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %s", buf.String())
	}
	lg.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("warn should be emitted at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
