// Package logrus exposes a small logrus-shaped API on top of zap so that
// infrastructure code (database, redis, migrations, cache) can log without
// carrying a logger through every constructor.
package logrus

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level follows logrus ordering: lower is more severe.
type Level int8

const (
	FatalLevel Level = iota
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

type Fields map[string]interface{}

// Logger is safe for concurrent use; the level lives in a zap.AtomicLevel.
type Logger struct {
	base  *zap.Logger
	level zap.AtomicLevel
}

type Entry struct {
	logger *Logger
	fields []zap.Field
}

var std = New()

// New returns a JSON logger writing to stdout at info level. It is the
// default until the server installs its own with ReplaceStandard.
func New() *Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(os.Stdout), level)
	return NewWithCore(core, level)
}

// NewWithCore builds a facade over an arbitrary core, mainly for tests.
func NewWithCore(core zapcore.Core, level zap.AtomicLevel) *Logger {
	return &Logger{
		base:  zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)),
		level: level,
	}
}

// FromZap routes the facade through base, so facade lines share its encoder,
// sink and fields. level filters on top of whatever base already allows.
func FromZap(base *zap.Logger, level Level) *Logger {
	atomic := zap.NewAtomicLevelAt(toZapLevel(level))
	wrapped := base.WithOptions(
		zap.AddCallerSkip(1),
		zap.WrapCore(func(c zapcore.Core) zapcore.Core { return leveledCore{Core: c, level: atomic} }),
	)
	return &Logger{base: wrapped, level: atomic}
}

// leveledCore drops entries below level before the wrapped core sees them.
type leveledCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c leveledCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l) && c.Core.Enabled(l)
}

func (c leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return leveledCore{Core: c.Core.With(fields), level: c.level}
}

func (c leveledCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(ent.Level) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

func StandardLogger() *Logger { return std }

// ReplaceStandard swaps the package-level logger and returns a restore func.
func ReplaceStandard(l *Logger) func() {
	prev := std
	std = l
	return func() { std = prev }
}

func (l *Logger) SetLevel(level Level) { l.level.SetLevel(toZapLevel(level)) }

func (l *Logger) GetLevel() Level { return fromZapLevel(l.level.Level()) }

func (l *Logger) WithField(key string, value interface{}) *Entry {
	return &Entry{logger: l, fields: []zap.Field{zap.Any(key, value)}}
}

func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{logger: l, fields: toZapFields(fields)}
}

func (l *Logger) WithError(err error) *Entry {
	return &Entry{logger: l, fields: []zap.Field{zap.Error(err)}}
}

func (l *Logger) Debug(args ...interface{}) { l.base.Debug(fmt.Sprint(args...)) }
func (l *Logger) Info(args ...interface{})  { l.base.Info(fmt.Sprint(args...)) }
func (l *Logger) Warn(args ...interface{})  { l.base.Warn(fmt.Sprint(args...)) }
func (l *Logger) Error(args ...interface{}) { l.base.Error(fmt.Sprint(args...)) }

func (l *Logger) Infof(format string, args ...interface{}) { l.base.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{}) { l.base.Warn(fmt.Sprintf(format, args...)) }

func (l *Logger) Sync() error { return l.base.Sync() }

func (e *Entry) with(extra ...zap.Field) *Entry {
	fields := make([]zap.Field, 0, len(e.fields)+len(extra))
	fields = append(append(fields, e.fields...), extra...)
	return &Entry{logger: e.logger, fields: fields}
}

func (e *Entry) WithField(key string, value interface{}) *Entry { return e.with(zap.Any(key, value)) }
func (e *Entry) WithFields(fields Fields) *Entry                { return e.with(toZapFields(fields)...) }
func (e *Entry) WithError(err error) *Entry                     { return e.with(zap.Error(err)) }

func (e *Entry) log(level zapcore.Level, msg string) {
	if ce := e.logger.base.Check(level, msg); ce != nil {
		ce.Write(e.fields...)
	}
}

func (e *Entry) Debug(args ...interface{}) { e.log(zapcore.DebugLevel, fmt.Sprint(args...)) }
func (e *Entry) Info(args ...interface{})  { e.log(zapcore.InfoLevel, fmt.Sprint(args...)) }
func (e *Entry) Warn(args ...interface{})  { e.log(zapcore.WarnLevel, fmt.Sprint(args...)) }
func (e *Entry) Error(args ...interface{}) { e.log(zapcore.ErrorLevel, fmt.Sprint(args...)) }

func (e *Entry) Warnf(format string, args ...interface{}) {
	e.log(zapcore.WarnLevel, fmt.Sprintf(format, args...))
}

// Package-level helpers log through the standard logger.

func pkgLogger() *zap.Logger { return std.base.WithOptions(zap.AddCallerSkip(1)) }

func Info(args ...interface{}) { pkgLogger().Info(fmt.Sprint(args...)) }

func Infof(format string, args ...interface{}) { pkgLogger().Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...interface{}) { pkgLogger().Warn(fmt.Sprintf(format, args...)) }

func WithField(key string, value interface{}) *Entry { return std.WithField(key, value) }
func WithFields(fields Fields) *Entry                { return std.WithFields(fields) }
func WithError(err error) *Entry                     { return std.WithError(err) }

func toZapFields(fields Fields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		out = append(out, zap.Any(key, value))
	}
	return out
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case FatalLevel:
		return zapcore.FatalLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case DebugLevel:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func fromZapLevel(level zapcore.Level) Level {
	switch {
	case level <= zapcore.DebugLevel:
		return DebugLevel
	case level == zapcore.InfoLevel:
		return InfoLevel
	case level == zapcore.WarnLevel:
		return WarnLevel
	case level == zapcore.ErrorLevel:
		return ErrorLevel
	default:
		return FatalLevel
	}
}
