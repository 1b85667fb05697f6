package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatting(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger = logger.With(String(FieldComponent, "aligner"))
	logger.Info("segment matched", Int(FieldScriptID, 7), Float64("ratio", 0.91))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "INFO aligner: segment matched") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "script_id=7") || !strings.Contains(line, "ratio=0.91") {
		t.Fatalf("missing attrs in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Warn("skip", String("reason", "no match found"))
	if !strings.Contains(buf.String(), `reason="no match found"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestJSONHandlerKeys(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	logger.Error("render failed", Int(FieldExitCode, 1))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if payload["level"] != "error" {
		t.Fatalf("expected lowercased level, got %v", payload["level"])
	}
	if payload["msg"] != "render failed" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestProgressSampler(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(0, "audio") {
		t.Fatal("first event should log")
	}
	if s.ShouldLog(2, "audio") {
		t.Fatal("same bucket should not log")
	}
	if !s.ShouldLog(7, "audio") {
		t.Fatal("new bucket should log")
	}
	if !s.ShouldLog(7, "video") {
		t.Fatal("stage change should log")
	}
	s.Reset()
	if !s.ShouldLog(7, "video") {
		t.Fatal("reset should clear state")
	}
}
