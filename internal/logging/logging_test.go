package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return bolt.New(bolt.NewJSONHandler(buf)).SetLevel(bolt.TRACE), buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"INFO", bolt.INFO},
		{" warn ", bolt.WARN},
		{"warning", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestFields(t *testing.T) {
	logger, buf := testLogger()

	e := &LogEvent{event: logger.Info()}
	e.Add(RequestID("req-1")).
		Add(ToolName("read_file")).
		Add(Code("ERR_FILESYSTEM")).
		Add(Success(false)).
		Add(Duration(1500 * time.Millisecond)).
		Add(ErrorField(errors.New("boom"))).
		Msg("tool call")

	m := decode(t, buf)
	if m["request_id"] != "req-1" || m["tool"] != "read_file" || m["code"] != "ERR_FILESYSTEM" {
		t.Fatalf("unexpected fields: %v", m)
	}
	if m["success"] != false {
		t.Fatalf("success = %v", m["success"])
	}
	if m["duration_ms"] != float64(1500) {
		t.Fatalf("duration_ms = %v", m["duration_ms"])
	}
}

func TestFields_EmptyValuesOmitted(t *testing.T) {
	logger, buf := testLogger()

	e := &LogEvent{event: logger.Info()}
	e.Add(RequestID("")).Add(Code("")).Add(ErrorField(nil)).Msg("quiet")

	m := decode(t, buf)
	for _, k := range []string{"request_id", "code", "error"} {
		if _, ok := m[k]; ok {
			t.Fatalf("expected %s to be omitted: %v", k, m)
		}
	}
}

func TestSetDefault(t *testing.T) {
	logger, buf := testLogger()
	prev := Get()
	SetDefault(logger)
	t.Cleanup(func() { SetDefault(prev) })

	Info().Add(Component("server")).Msg("hello")
	m := decode(t, buf)
	if m["component"] != "server" {
		t.Fatalf("component = %v", m["component"])
	}
}

func TestNew_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Config{Level: "warn", Format: "json", Output: buf})

	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}
