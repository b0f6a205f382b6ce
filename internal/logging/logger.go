package logging

import (
	"os"
	"strings"

	zaplogrus "github.com/pixelbuilders001/whydesigns-backend-server/internal/logging/zaplogrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StandardLogger wraps zap with the field conventions used across the API.
type StandardLogger struct {
	logger *zap.Logger
}

// NewStandardLogger builds a JSON logger for production and a console logger otherwise.
func NewStandardLogger(level, environment string) *StandardLogger {
	zapLevel := getZapLevel(level)

	var encoder zapcore.Encoder
	if strings.EqualFold(environment, "production") {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "time"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(zapLevel))
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("environment", environment))

	return &StandardLogger{logger: logger}
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(logger *zap.Logger) *StandardLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandardLogger{logger: logger}
}

func getZapLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLogrusLevel maps a config level onto the package-level facade.
func ParseLogrusLevel(level string) zaplogrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zaplogrus.DebugLevel
	case "warn", "warning":
		return zaplogrus.WarnLevel
	case "error":
		return zaplogrus.ErrorLevel
	default:
		return zaplogrus.InfoLevel
	}
}

func (l *StandardLogger) Logger() *zap.Logger { return l.logger }

func (l *StandardLogger) with(fields ...zap.Field) *StandardLogger {
	return &StandardLogger{logger: l.logger.With(fields...)}
}

func (l *StandardLogger) WithService(service string) *StandardLogger {
	return l.with(zap.String("service", service))
}

func (l *StandardLogger) WithComponent(component string) *StandardLogger {
	return l.with(zap.String("component", component))
}

func (l *StandardLogger) WithOperation(operation string) *StandardLogger {
	return l.with(zap.String("operation", operation))
}

func (l *StandardLogger) WithRequestID(requestID string) *StandardLogger {
	return l.with(zap.String("request_id", requestID))
}

func (l *StandardLogger) WithUserID(userID int64) *StandardLogger {
	return l.with(zap.Int64("user_id", userID))
}

func (l *StandardLogger) WithError(err error) *StandardLogger {
	return l.with(zap.Error(err))
}

func (l *StandardLogger) WithFields(fields map[string]interface{}) *StandardLogger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return l.with(zapFields...)
}

func (l *StandardLogger) Debug(msg string, fields ...zap.Field) { l.logger.Debug(msg, fields...) }
func (l *StandardLogger) Info(msg string, fields ...zap.Field)  { l.logger.Info(msg, fields...) }
func (l *StandardLogger) Warn(msg string, fields ...zap.Field)  { l.logger.Warn(msg, fields...) }
func (l *StandardLogger) Error(msg string, fields ...zap.Field) { l.logger.Error(msg, fields...) }

func (l *StandardLogger) LogStartup(service, version string, port int) {
	l.logger.Info("Service starting",
		zap.String("event", "startup"),
		zap.String("service", service),
		zap.String("version", version),
		zap.Int("port", port),
	)
}

func (l *StandardLogger) LogShutdown(service, reason string) {
	l.logger.Info("Service shutting down",
		zap.String("event", "shutdown"),
		zap.String("service", service),
		zap.String("reason", reason),
	)
}

// LogAPIRequest records one served request. userID is 0 for anonymous callers.
func (l *StandardLogger) LogAPIRequest(method, path string, statusCode int, durationMs int64, userID int64) {
	fields := []zap.Field{
		zap.String("event", "api_request"),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", statusCode),
		zap.Int64("duration_ms", durationMs),
	}
	if userID > 0 {
		fields = append(fields, zap.Int64("user_id", userID))
	}

	switch {
	case statusCode >= 500:
		l.logger.Error("API request", fields...)
	case statusCode >= 400:
		l.logger.Warn("API request", fields...)
	default:
		l.logger.Info("API request", fields...)
	}
}

// LogBusinessEvent records domain events such as signups and booking changes.
func (l *StandardLogger) LogBusinessEvent(eventType string, details map[string]interface{}) {
	fields := []zap.Field{
		zap.String("event", "business_event"),
		zap.String("type", eventType),
	}
	for k, v := range details {
		fields = append(fields, zap.Any(k, v))
	}
	l.logger.Info("Business event", fields...)
}

func (l *StandardLogger) Sync() error { return l.logger.Sync() }
