package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newBufferLogger(component string) (*StructuredLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := &StructuredLogger{output: &buf, component: component, minLevel: LogLevelDebug}
	return logger, &buf
}

func TestStructuredLoggerEmitsJSON(t *testing.T) {
	logger, buf := newBufferLogger("classifier")

	logger.Info(context.Background(), "plan produced", map[string]interface{}{
		"intent": "data_query",
		"tier":   2,
	})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry.Severity != LogLevelInfo {
		t.Errorf("severity = %s, want INFO", entry.Severity)
	}
	if entry.Component != "classifier" {
		t.Errorf("component = %q", entry.Component)
	}
	if entry.Message != "plan produced" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.Attributes["intent"] != "data_query" {
		t.Errorf("intent attribute = %v", entry.Attributes["intent"])
	}
}

func TestStructuredLoggerErrorAttachesError(t *testing.T) {
	logger, buf := newBufferLogger("scheduler")

	logger.Error(context.Background(), "node failed", errors.New("executor timeout"))

	if !strings.Contains(buf.String(), "executor timeout") {
		t.Errorf("error text missing from entry: %s", buf.String())
	}
}

func TestStructuredLoggerMinLevel(t *testing.T) {
	logger, buf := newBufferLogger("session")
	logger = logger.WithMinLevel(LogLevelWarn)

	logger.Debug(context.Background(), "dropped")
	logger.Info(context.Background(), "dropped too")
	if buf.Len() != 0 {
		t.Fatalf("entries below min level were emitted: %s", buf.String())
	}

	logger.Warn(context.Background(), "kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn entry missing")
	}
}

func TestWithComponentPreservesOutput(t *testing.T) {
	logger, buf := newBufferLogger("orchestrator")

	logger.WithComponent("fusion").Info(context.Background(), "narrative built")

	if !strings.Contains(buf.String(), `"component":"fusion"`) {
		t.Errorf("derived component missing: %s", buf.String())
	}
}
