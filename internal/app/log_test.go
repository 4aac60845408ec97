package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestVtHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "pin added",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tpin added\n",
		},
		{
			name:    "warn level",
			opID:    "op-456",
			level:   slog.LevelWarn,
			message: "photo download failed",
			want:    "2024-06-15T14:30:45Z\tWARN\top-456\tphoto download failed\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "photos materialized",
			attrs:   []slog.Attr{slog.String("pin", "p-1"), slog.Int("count", 21)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tphotos materialized\tpin=p-1\tcount=21\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &vtHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestVtHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &vtHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*vtHandler)
	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"a=1", "component=vault", "key=abc"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %s", got, want)
		}
	}
}

func TestVtHandler_Enabled(t *testing.T) {
	tests := []struct {
		configured string
		level      slog.Level
		want       bool
	}{
		{"debug", slog.LevelDebug, true},
		{"info", slog.LevelDebug, false},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelInfo, false},
		{"error", slog.LevelWarn, false},
		{"error", slog.LevelError, true},
		{"bogus", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		h := &vtHandler{level: parseLevel(tt.configured)}
		if got := h.Enabled(context.Background(), tt.level); got != tt.want {
			t.Errorf("level %s: Enabled(%v) = %v, want %v", tt.configured, tt.level, got, tt.want)
		}
	}

	if !(&vtHandler{}).Enabled(context.Background(), slog.LevelDebug) {
		t.Error("handler without level should enable everything")
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-op", "info")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Debug("hidden")
	logger.Info("visible", "pin", "p-1")

	data, err := os.ReadFile(filepath.Join(dir, "vt.log"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	got := string(data)
	if strings.Contains(got, "hidden") {
		t.Errorf("debug record written at info level: %q", got)
	}
	if !strings.Contains(got, "\ttest-op\tvisible\tpin=p-1") {
		t.Errorf("log = %q, want info record", got)
	}
}
