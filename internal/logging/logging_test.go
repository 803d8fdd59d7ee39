package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatJSON, slog.LevelInfo)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("saved form", "form_id", "f-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["msg"] != "saved form" || entry["form_id"] != "f-1" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatText, slog.LevelDebug)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("normalizing", "fields", 3)
	if !strings.Contains(buf.String(), "normalizing") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Format("xml"), slog.LevelInfo); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestContextLogger(t *testing.T) {
	if From(context.Background()) != Default() {
		t.Error("From(empty ctx) is not the default logger")
	}

	var buf bytes.Buffer
	logger, _ := New(&buf, FormatJSON, slog.LevelInfo)
	ctx := With(context.Background(), logger.With("request_id", "r-9"))
	From(ctx).Info("hello")
	if !strings.Contains(buf.String(), `"request_id":"r-9"`) {
		t.Errorf("context logger output = %q", buf.String())
	}
}
