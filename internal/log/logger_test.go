package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONFormatCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentStorage, Output: &buf})

	logger.Info("Transaction created", FieldCount, 3)
	logger.Debug("Hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "Transaction created" || entry[FieldComponent] != ComponentStorage {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry[FieldCount] != float64(3) {
		t.Errorf("count = %v", entry[FieldCount])
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Component: ComponentApp}).WithComponent(ComponentWorker)
	if logger.Component() != ComponentWorker {
		t.Fatalf("Component() = %s", logger.Component())
	}
	logger.Warn("Export failed")
	if !strings.Contains(buf.String(), "component=worker") {
		t.Errorf("missing component in %q", buf.String())
	}
	if strings.Count(buf.String(), "component=") != 1 {
		t.Errorf("component should appear once: %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected fallback logger")
	}

	var buf bytes.Buffer
	base := New(Config{Output: &buf})
	handler := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "Handled")
		})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/boxes", nil))
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("request id missing from %q", buf.String())
	}
}

func TestStructuredLogger_LevelsByStatus(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, Level: slog.LevelDebug}))
	req := httptest.NewRequest(http.MethodGet, "/api/projection?timeframe=5Y", nil)

	sl.LogHTTPEnd(context.Background(), req, 200, 5, "127.0.0.1")
	sl.LogHTTPEnd(context.Background(), req, 404, 5, "127.0.0.1")
	sl.LogHTTPEnd(context.Background(), req, 500, 5, "127.0.0.1")
	sl.LogError(context.Background(), "Load failed", errors.New("boom"), ComponentStorage, OpList, nil)

	out := buf.String()
	for _, want := range []string{"level=INFO", "level=WARN", "level=ERROR", "error=boom", "operation=list"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
