package logx

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// setupTestLogger routes the sink to a buffer and restores stderr afterwards.
func setupTestLogger(t *testing.T, debug bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer

	debugMutex.Lock()
	prevEnabled, prevDomains := debugConfig.Enabled, debugConfig.Domains
	debugConfig.Enabled = debug
	debugConfig.Domains = nil
	debugMutex.Unlock()

	Configure(Options{Output: &buf, Debug: debug})
	t.Cleanup(func() {
		debugMutex.Lock()
		debugConfig.Enabled, debugConfig.Domains = prevEnabled, prevDomains
		debugMutex.Unlock()
		Configure(Options{})
	})
	return &buf
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("test-agent")
	if logger.GetAgentID() != "test-agent" {
		t.Errorf("Expected agent ID 'test-agent', got '%s'", logger.GetAgentID())
	}
}

func TestLogFormat(t *testing.T) {
	buf := setupTestLogger(t, false)

	logger := NewLogger("Solution Architect")
	logger.Info("Test message with %s", "formatting")
	Sync()

	output := buf.String()
	if !strings.Contains(output, "[Solution Architect]") {
		t.Errorf("Expected agent ID in output, got: %s", output)
	}
	if !strings.Contains(output, "INFO") {
		t.Errorf("Expected log level in output, got: %s", output)
	}
	if !strings.Contains(output, "Test message with formatting") {
		t.Errorf("Expected formatted message in output, got: %s", output)
	}
}

func TestDebugSuppressedWhenDisabled(t *testing.T) {
	buf := setupTestLogger(t, false)

	NewLogger("coder").Debug("hidden %d", 1)
	Debug(context.Background(), "coder", "also hidden")
	Sync()

	if buf.Len() != 0 {
		t.Errorf("Expected no debug output, got: %s", buf.String())
	}
}

func TestDebugDomainFiltering(t *testing.T) {
	buf := setupTestLogger(t, true)
	SetDebugDomains([]string{"probe"})

	ctx := WithAgent(context.Background(), "Backend Developer")
	Debug(ctx, "probe", "probing %s", "/status")
	Debug(ctx, "architect", "should not appear")
	Sync()

	output := buf.String()
	if !strings.Contains(output, "probing /status") {
		t.Errorf("Expected probe debug line, got: %s", output)
	}
	if !strings.Contains(output, "[Backend Developer]") {
		t.Errorf("Expected agent from context, got: %s", output)
	}
	if strings.Contains(output, "should not appear") {
		t.Errorf("Expected architect domain to be filtered, got: %s", output)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Output: &buf, JSON: true})
	t.Cleanup(func() { Configure(Options{}) })

	NewLogger("orchestrator").Warn("careful")
	Sync()

	if !strings.Contains(buf.String(), `"msg":"careful"`) {
		t.Errorf("Expected JSON line, got: %s", buf.String())
	}
}

func TestWrap(t *testing.T) {
	_ = setupTestLogger(t, false)

	if Wrap(nil, "noop") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	base := errors.New("boom")
	wrapped := Wrap(base, "db connect")
	if !errors.Is(wrapped, base) {
		t.Error("Wrap should preserve the cause")
	}
	if wrapped.Error() != "db connect: boom" {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}
