// Package log is the structured logger shared by the engine and its hosts.
// Entries carry a fields map; the zap backend renders keys in sorted order
// so identical denials always produce identical lines.
package log

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the webgate logging interface.
type Logger interface {
	Info(fields map[string]any, msg string)
	Error(fields map[string]any, msg string)
	Debug(fields map[string]any, msg string)
	Warn(fields map[string]any, msg string)
	Panic(fields map[string]any, msg string)
	Fatal(fields map[string]any, msg string)
}

// holder lets the global logger live in an atomic.Pointer, which needs a
// concrete type.
type holder struct{ Logger }

var global atomic.Pointer[holder]

func init() {
	global.Store(&holder{newZapLogger(false, zapcore.InfoLevel)})
}

// SetLogger replaces the global logger. Safe to call while other goroutines log.
func SetLogger(l Logger) {
	global.Store(&holder{l})
}

// GetLogger returns the current global logger.
func GetLogger() Logger {
	return global.Load().Logger
}

// Configure installs a zap logger for env ("prod" or anything else for
// development output) at the named level.
func Configure(env, level string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	SetLogger(newZapLogger(env != "prod", lvl))
	return nil
}

func Info(fields map[string]any, msg string)  { GetLogger().Info(fields, msg) }
func Error(fields map[string]any, msg string) { GetLogger().Error(fields, msg) }
func Debug(fields map[string]any, msg string) { GetLogger().Debug(fields, msg) }
func Warn(fields map[string]any, msg string)  { GetLogger().Warn(fields, msg) }
func Panic(fields map[string]any, msg string) { GetLogger().Panic(fields, msg) }
func Fatal(fields map[string]any, msg string) { GetLogger().Fatal(fields, msg) }

// zapLogger implements Logger on top of zap. Fields are only converted when
// the level is enabled.
type zapLogger struct {
	base *zap.Logger
}

func newZapLogger(dev bool, level zapcore.Level) Logger {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.LevelKey = "level"

	base, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		base = zap.NewNop()
	}
	return &zapLogger{base: base}
}

func (l *zapLogger) write(lvl zapcore.Level, fields map[string]any, msg string) {
	if ce := l.base.Check(lvl, msg); ce != nil {
		ce.Write(zapFields(fields)...)
	}
}

func (l *zapLogger) Info(f map[string]any, msg string)  { l.write(zapcore.InfoLevel, f, msg) }
func (l *zapLogger) Error(f map[string]any, msg string) { l.write(zapcore.ErrorLevel, f, msg) }
func (l *zapLogger) Debug(f map[string]any, msg string) { l.write(zapcore.DebugLevel, f, msg) }
func (l *zapLogger) Warn(f map[string]any, msg string)  { l.write(zapcore.WarnLevel, f, msg) }
func (l *zapLogger) Panic(f map[string]any, msg string) { l.write(zapcore.PanicLevel, f, msg) }
func (l *zapLogger) Fatal(f map[string]any, msg string) { l.write(zapcore.FatalLevel, f, msg) }

// zapFields converts a fields map into zap fields ordered by key.
func zapFields(m map[string]any) []zap.Field {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, len(keys))
	for i, k := range keys {
		out[i] = zap.Any(k, m[k])
	}
	return out
}

// WithComponent wraps l so that every entry carries a "component" field.
// A nil l wraps the global logger as it is at call time.
func WithComponent(l Logger, component string) Logger {
	if l == nil {
		l = GetLogger()
	}
	return &componentLogger{next: l, component: component}
}

type componentLogger struct {
	next      Logger
	component string
}

func (c *componentLogger) with(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["component"] = c.component
	return out
}

func (c *componentLogger) Info(f map[string]any, msg string)  { c.next.Info(c.with(f), msg) }
func (c *componentLogger) Error(f map[string]any, msg string) { c.next.Error(c.with(f), msg) }
func (c *componentLogger) Debug(f map[string]any, msg string) { c.next.Debug(c.with(f), msg) }
func (c *componentLogger) Warn(f map[string]any, msg string)  { c.next.Warn(c.with(f), msg) }
func (c *componentLogger) Panic(f map[string]any, msg string) { c.next.Panic(c.with(f), msg) }
func (c *componentLogger) Fatal(f map[string]any, msg string) { c.next.Fatal(c.with(f), msg) }

type noopLogger struct{}

func (noopLogger) Info(map[string]any, string)  {}
func (noopLogger) Error(map[string]any, string) {}
func (noopLogger) Debug(map[string]any, string) {}
func (noopLogger) Warn(map[string]any, string)  {}
func (noopLogger) Panic(map[string]any, string) {}
func (noopLogger) Fatal(map[string]any, string) {}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger { return noopLogger{} }
