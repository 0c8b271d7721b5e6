package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	global *zap.SugaredLogger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init builds the process-wide logger at the given level ("debug", "info",
// "warn", "error"). An empty level keeps the current one.
func Init(lvl string) error {
	mu.Lock()
	defer mu.Unlock()

	if lvl != "" {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return err
		}
		level.SetLevel(parsed)
	}

	cfg := zap.Config{
		Level:             level,
		Development:       false,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	z, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	global = z.Sugar()
	return nil
}

// Logger returns the global logger, or a no-op logger before Init.
func Logger() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		return zap.NewNop().Sugar()
	}
	return global
}

// Replace swaps the global logger and returns a function restoring the
// previous one.
func Replace(l *zap.SugaredLogger) func() {
	mu.Lock()
	defer mu.Unlock()
	prev := global
	global = l
	return func() {
		mu.Lock()
		defer mu.Unlock()
		global = prev
	}
}

// SetLevel changes the level of the running logger.
func SetLevel(lvl string) error {
	parsed, err := ParseLevel(lvl)
	if err != nil {
		return err
	}
	level.SetLevel(parsed)
	return nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(lvl string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", lvl)
	}
}

// Sync flushes buffered log entries.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		_ = global.Sync()
	}
}
