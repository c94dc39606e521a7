package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// logLine is the slog JSON shape the tests decode into
type logLine struct {
	Level   string `json:"level"`
	Message string `json:"msg"`
	Error   string `json:"error"`
	Key     string `json:"key"`
	Session string `json:"session_id"`
	User    string `json:"user_id"`
	Tenant  string `json:"tenant_id"`
}

func decodeLine(t *testing.T, buf *bytes.Buffer) logLine {
	t.Helper()
	var line logLine
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}
	return line
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		if buf.Len() > 0 {
			t.Error("Debug message should not be logged at Info level")
		}
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		if buf.Len() == 0 {
			t.Fatal("Info message should be logged at Info level")
		}

		line := decodeLine(t, &buf)
		if line.Level != "INFO" {
			t.Errorf("Expected level INFO, got %s", line.Level)
		}
		if line.Message != "info message" {
			t.Errorf("Expected message 'info message', got %s", line.Message)
		}
	})

	t.Run("warn logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Warn("warn message")
		if buf.Len() == 0 {
			t.Error("Warn message should be logged at Info level")
		}
	})

	t.Run("error logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Error("error message")
		if buf.Len() == 0 {
			t.Error("Error message should be logged at Info level")
		}
	})
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("key", "value").Info("message")

	line := decodeLine(t, &buf)
	if line.Key != "value" {
		t.Errorf("Expected field key=value, got %q", line.Key)
	}

	// The derived logger must not mutate the parent
	buf.Reset()
	logger.Info("plain")
	line = decodeLine(t, &buf)
	if line.Key != "" {
		t.Error("parent logger inherited a child field")
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("boom")).Warn("failed")
	line := decodeLine(t, &buf)
	if line.Error != "boom" {
		t.Errorf("Expected error field 'boom', got %q", line.Error)
	}

	// nil error is a no-op
	buf.Reset()
	logger.WithError(nil).Info("fine")
	line = decodeLine(t, &buf)
	if line.Error != "" {
		t.Errorf("Expected no error field, got %q", line.Error)
	}
}

func TestLogger_Formatted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	logger.Infof("society %s loaded in %dms", "T1", 12)
	line := decodeLine(t, &buf)
	if line.Message != "society T1 loaded in 12ms" {
		t.Errorf("Unexpected formatted message: %s", line.Message)
	}
}

func TestLogger_FromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithUserID(ctx, "user-42")
	ctx = WithTenantID(ctx, "T1")

	FromContext(ctx).Info("scoped")

	line := decodeLine(t, &buf)
	if line.Session != "sess-1" {
		t.Errorf("Expected session_id sess-1, got %q", line.Session)
	}
	if line.User != "user-42" {
		t.Errorf("Expected user_id user-42, got %q", line.User)
	}
	if line.Tenant != "T1" {
		t.Errorf("Expected tenant_id T1, got %q", line.Tenant)
	}
}

func TestGetLogger_DefaultsWhenAbsent(t *testing.T) {
	logger := GetLogger(context.Background())
	if logger == nil {
		t.Fatal("GetLogger returned nil for a bare context")
	}
}
