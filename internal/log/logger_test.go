package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: ComponentHTTP, Format: "json", Output: buf})
}

func TestContextAttributesAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	ctx := WithAttrs(context.Background(), slog.String(FieldRequestID, "req-1"))
	ctx = WithAttrs(ctx, slog.String(FieldOwnerID, "user-7"))
	logger.InfoContext(ctx, "hello")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"owner_id":"user-7"`, `"component":"http"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log %s missing %s", out, want)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf).WithComponent(ComponentWorker)
	logger.Info("tick")

	if logger.Component() != ComponentWorker {
		t.Errorf("component = %q", logger.Component())
	}
	if strings.Contains(buf.String(), `"component":"http"`) {
		t.Errorf("old component leaked: %s", buf.String())
	}
	if n := strings.Count(buf.String(), `"component"`); n != 1 {
		t.Errorf("got %d component keys, want 1: %s", n, buf.String())
	}
}

func TestWithComponentKeepsWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf).With("instance", "a1").WithComponent(ComponentBackend)
	logger.Info("open")

	out := buf.String()
	if !strings.Contains(out, `"instance":"a1"`) || !strings.Contains(out, `"component":"backend"`) {
		t.Errorf("log %s lost attributes", out)
	}
	if n := strings.Count(out, `"component"`); n != 1 {
		t.Errorf("got %d component keys, want 1: %s", n, out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{500, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newBufferLogger(&buf))
		sl.LogHTTPEnd(context.Background(), httptest.NewRequest("GET", "/api/v1/debts", nil), tt.status, 3, "10.0.0.1")
		if !strings.Contains(buf.String(), `"level":"`+tt.level+`"`) {
			t.Errorf("status %d logged %s, want level %s", tt.status, buf.String(), tt.level)
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	sl.LogError(context.Background(), "save failed", errors.New("boom"), ErrorTypeDatabase, OpCreate, NewFields().WithResource("debt", 4))

	out := buf.String()
	for _, want := range []string{`"error":"boom"`, `"error_type":"database_error"`, `"resource_id":4`} {
		if !strings.Contains(out, want) {
			t.Errorf("log %s missing %s", out, want)
		}
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("expected fallback logger")
	}
}
