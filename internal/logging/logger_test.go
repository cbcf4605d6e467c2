package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func restoreDefault(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

// ---- Setup Tests ----

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetup_JSON(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	logger, cleanup := setup(&buf, "warn", "json", "")
	defer cleanup()

	logger.Info("dropped")
	logger.Warn("kept", "section", "LINIE")

	line := strings.TrimSpace(buf.String())
	if strings.Contains(line, "dropped") {
		t.Errorf("info record written at warn level: %s", line)
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, line)
	}
	if rec["msg"] != "kept" || rec["section"] != "LINIE" {
		t.Errorf("record = %v", rec)
	}
	if slog.Default() != logger {
		t.Error("Setup() did not install the default logger")
	}
}

func TestSetup_Text(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	logger, cleanup := setup(&buf, "debug", "text", "")
	defer cleanup()

	logger.Debug("trace", "rows", 3)
	if !strings.Contains(buf.String(), "msg=trace rows=3") {
		t.Errorf("text output = %q", buf.String())
	}
}

// ---- multiHandler Tests ----

func TestMultiHandler_FanOut(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(h).With("job_id", "j1").WithGroup("conv")

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(debug) = false with one debug handler")
	}

	logger.Info("converted", "rows", 2)
	if !strings.Contains(a.String(), "job_id=j1") || !strings.Contains(a.String(), "conv.rows=2") {
		t.Errorf("first handler output = %q", a.String())
	}
	if b.Len() != 0 {
		t.Errorf("error-level handler received info record: %q", b.String())
	}

	logger.Error("failed")
	if !strings.Contains(b.String(), "msg=failed") {
		t.Errorf("second handler output = %q", b.String())
	}
}

// ---- Context Tests ----

func TestFromContext_RequestID(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	WithFields(ctx, "file", "net.net").Info("upload received")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-42") || !strings.Contains(out, "file=net.net") {
		t.Errorf("output = %q", out)
	}

	buf.Reset()
	FromContext(context.Background()).Info("plain")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("request_id added without one in context: %q", buf.String())
	}
}
