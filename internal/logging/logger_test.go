package logging

import (
	"fmt"
	"testing"

	zaplogrus "github.com/pixelbuilders001/whydesigns-backend-server/internal/logging/zaplogrus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStandardLogger_Basic(t *testing.T) {
	logger := NewStandardLogger("info", "development")

	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger())

	prod := NewStandardLogger("debug", "production")
	assert.True(t, prod.Logger().Core().Enabled(zapcore.DebugLevel))
}

func TestStandardLogger_LogLevels(t *testing.T) {
	tests := []struct {
		levelStr string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"WARNING", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"invalid", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.levelStr, func(t *testing.T) {
			assert.Equal(t, tt.expected, getZapLevel(tt.levelStr))
		})
	}
}

// Helper to create an observable logger for assertions
func setupTestLogger() (*StandardLogger, *observer.ObservedLogs) {
	core, observedLogs := observer.New(zap.InfoLevel)
	return &StandardLogger{logger: zap.New(core)}, observedLogs
}

func TestStandardLogger_ContextFields(t *testing.T) {
	logger, logs := setupTestLogger()

	logger.WithService("api").
		WithComponent("otp").
		WithOperation("issue").
		WithRequestID("req-123").
		WithUserID(42).
		Info("test message")

	assert.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "test message", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "api", fields["service"])
	assert.Equal(t, "otp", fields["component"])
	assert.Equal(t, "issue", fields["operation"])
	assert.Equal(t, "req-123", fields["request_id"])
	assert.EqualValues(t, 42, fields["user_id"])
}

func TestStandardLogger_WithError(t *testing.T) {
	logger, logs := setupTestLogger()

	logger.WithError(fmt.Errorf("mock error")).Info("test error message")

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "mock error", logs.All()[0].ContextMap()["error"])
}

func TestStandardLogger_WithFields(t *testing.T) {
	logger, logs := setupTestLogger()

	logger.WithFields(map[string]interface{}{
		"custom_key": "custom_value",
		"number":     42,
	}).Info("test message")

	logFields := logs.All()[0].ContextMap()
	assert.Equal(t, "custom_value", logFields["custom_key"])
	assert.EqualValues(t, 42, logFields["number"])
}

func TestStandardLogger_LogStartupAndShutdown(t *testing.T) {
	logger, logs := setupTestLogger()

	logger.LogStartup("whydesigns-api", "1.0.0", 8080)
	logger.LogShutdown("whydesigns-api", "graceful")

	assert.Equal(t, 2, logs.Len())
	startup := logs.All()[0].ContextMap()
	assert.Equal(t, "startup", startup["event"])
	assert.Equal(t, "1.0.0", startup["version"])
	assert.EqualValues(t, 8080, startup["port"])

	shutdown := logs.All()[1].ContextMap()
	assert.Equal(t, "shutdown", shutdown["event"])
	assert.Equal(t, "graceful", shutdown["reason"])
}

func TestStandardLogger_LogAPIRequestLevels(t *testing.T) {
	logger, logs := setupTestLogger()

	logger.LogAPIRequest("GET", "/api/v1/counselor", 200, 12, 0)
	logger.LogAPIRequest("POST", "/api/v1/user/signin", 401, 30, 0)
	logger.LogAPIRequest("POST", "/api/v1/booking", 500, 80, 7)

	entries := logs.All()
	assert.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.NotContains(t, entries[0].ContextMap(), "user_id")
	assert.EqualValues(t, 7, entries[2].ContextMap()["user_id"])
}

func TestStandardLogger_LogBusinessEvent(t *testing.T) {
	logger, logs := setupTestLogger()

	logger.LogBusinessEvent("booking_created", map[string]interface{}{
		"booking_id":   11,
		"counselor_id": 3,
	})

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "business_event", fields["event"])
	assert.Equal(t, "booking_created", fields["type"])
	assert.EqualValues(t, 11, fields["booking_id"])
}

func TestNewFromZap_NilFallsBackToNop(t *testing.T) {
	logger := NewFromZap(nil)
	assert.NotNil(t, logger.Logger())
	logger.Info("dropped")
}

func TestParseLogrusLevel(t *testing.T) {
	tests := []struct {
		levelStr string
		expected zaplogrus.Level
	}{
		{"debug", zaplogrus.DebugLevel},
		{"warn", zaplogrus.WarnLevel},
		{"warning", zaplogrus.WarnLevel},
		{"error", zaplogrus.ErrorLevel},
		{"INFO", zaplogrus.InfoLevel},
		{"", zaplogrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.levelStr, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogrusLevel(tt.levelStr))
		})
	}
}
