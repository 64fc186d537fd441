package logger

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the process logger is built.
type Config struct {
	Env   string // "production" emits JSON, anything else the console encoder
	Level string // debug, info, warn, error
}

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

func Init(cfg Config) {
	l, err := build(cfg)
	if err != nil {
		l, _ = zap.NewProduction()
	}

	mu.Lock()
	base = l
	mu.Unlock()

	Info("logger initialized", map[string]any{
		"env":   cfg.Env,
		"level": cfg.Level,
	})
}

func build(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	if strings.EqualFold(cfg.Env, "production") {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = level
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zcfg.Build(zap.AddCallerSkip(1))
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = level
	zcfg.DisableStacktrace = true
	zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return zcfg.Build(zap.AddCallerSkip(1))
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Replace swaps the process logger and returns a func restoring the previous one.
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prev := base
	base = l
	mu.Unlock()

	return func() {
		mu.Lock()
		base = prev
		mu.Unlock()
	}
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Sync() error {
	return L().Sync()
}

func Info(msg string, fields map[string]any) {
	L().Info(msg, toFields(fields)...)
}

func Warn(msg string, fields map[string]any) {
	L().Warn(msg, toFields(fields)...)
}

func Error(msg string, fields map[string]any) {
	L().Error(msg, toFields(fields)...)
}

func Fatal(msg string, fields map[string]any) {
	L().Fatal(msg, toFields(fields)...)
}

// toFields keeps output stable by sorting keys.
func toFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
