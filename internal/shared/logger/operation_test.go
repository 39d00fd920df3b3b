package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/blockpanel/blockpanel/internal/shared/errors"
)

func captureLogger() (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{Logger: slog.New(handler), config: DefaultConfig()}, buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var line map[string]any
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			t.Fatalf("log line is not JSON: %v\n%s", err, raw)
		}
		lines = append(lines, line)
	}
	return lines
}

func TestOperation_Complete(t *testing.T) {
	log, buf := captureLogger()

	op := log.StartOp(context.Background(), "node.register", "node_id", "n-1")
	op.With("fqdn", "node1.example.com")
	op.Complete("node registered", "status", "online")

	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected start and outcome lines, got %d", len(lines))
	}

	start := lines[0]
	if start["level"] != "DEBUG" {
		t.Errorf("start line should be debug, got %v", start["level"])
	}
	if start["operation"] != "node.register" {
		t.Errorf("start line missing operation name: %v", start)
	}

	outcome := lines[1]
	if outcome["outcome"] != "success" {
		t.Errorf("expected outcome success, got %v", outcome["outcome"])
	}
	if outcome["operation"] != "node.register" || outcome["node_id"] != "n-1" {
		t.Errorf("outcome line lost operation attrs: %v", outcome)
	}
	if outcome["fqdn"] != "node1.example.com" || outcome["status"] != "online" {
		t.Errorf("With/Complete attrs missing: %v", outcome)
	}
	if _, ok := outcome["duration_ms"]; !ok {
		t.Errorf("outcome line missing duration_ms: %v", outcome)
	}
}

func TestOperation_FailUnpacksDomainError(t *testing.T) {
	log, buf := captureLogger()

	op := log.StartOp(context.Background(), "node.check")
	op.Fail(errors.NewNodeError(errors.ErrCodeNodeOffline, "daemon did not answer", true, nil), "")

	lines := logLines(t, buf)
	outcome := lines[len(lines)-1]

	if outcome["level"] != "ERROR" {
		t.Errorf("failure should log at error level, got %v", outcome["level"])
	}
	if outcome["outcome"] != "failure" {
		t.Errorf("expected outcome failure, got %v", outcome["outcome"])
	}
	if outcome["msg"] != "operation failed" {
		t.Errorf("empty message should fall back to default, got %v", outcome["msg"])
	}
	if outcome["error_code"] != errors.ErrCodeNodeOffline {
		t.Errorf("domain error code not unpacked: %v", outcome)
	}
	if outcome["retryable"] != true {
		t.Errorf("retryable flag not unpacked: %v", outcome)
	}
}
