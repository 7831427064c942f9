package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"signalwatch/internal/services"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		" ERROR ": slog.LevelError,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger = logger.With(String(FieldComponent, "pipeline"))
	logger.Info("run finished", String(FieldRunID, "run-1"), Int("discovered", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO pipeline: run finished") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "run_id=run-1") || !strings.Contains(line, "discovered=3") {
		t.Fatalf("missing attributes: %q", line)
	}
}

func TestJSONHandlerKeys(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, levelVar, false))

	logger.Warn("feed failed", String(FieldChannel, "UC1"))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if decoded["msg"] != "feed failed" {
		t.Fatalf("msg = %v", decoded["msg"])
	}
	if decoded["level"] != "warn" {
		t.Fatalf("level = %v", decoded["level"])
	}
	if _, ok := decoded["ts"]; !ok {
		t.Fatal("missing ts key")
	}
	if decoded["channel"] != "UC1" {
		t.Fatalf("channel = %v", decoded["channel"])
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	ctx := services.WithVideoID(context.Background(), "abc12345678")
	ctx = services.WithStage(ctx, "summary")

	WithContext(ctx, logger).Info("stage done")

	line := buf.String()
	if !strings.Contains(line, "video_id=abc12345678") || !strings.Contains(line, "stage=summary") {
		t.Fatalf("context fields missing: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
