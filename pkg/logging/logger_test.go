package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")
	logger.Info("lead accepted", "email", "jane@example.com")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "lead accepted" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["email"] != "jane@example.com" {
		t.Errorf("unexpected email attr: %v", entry["email"])
	}
}

func TestNewLogger_TextFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") {
		t.Errorf("expected text handler output, got %q", out)
	}
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "text").With("component", "notify")
	logger.Info("sent")

	if !strings.Contains(buf.String(), "component=notify") {
		t.Errorf("expected component attr, got %q", buf.String())
	}
}
