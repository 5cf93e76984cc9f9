// Package logger provides process-wide leveled logging backed by zap.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar = zap.NewNop().Sugar()

// Init replaces the default no-op logger. level is one of debug, info, warn
// or error (default info); format is json or text (default text).
func Init(level, format string) error {
	var lvl zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if strings.ToLower(format) == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	sugar = l.Sugar()
	return nil
}

// Set installs l as the process logger. Used by tests to capture output.
func Set(l *zap.Logger) {
	sugar = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// Sync flushes buffered entries.
func Sync() {
	_ = sugar.Sync()
}

func Debug(format string, args ...interface{}) { sugar.Debugf(format, args...) }
func Info(format string, args ...interface{})  { sugar.Infof(format, args...) }
func Warn(format string, args ...interface{})  { sugar.Warnf(format, args...) }
func Error(format string, args ...interface{}) { sugar.Errorf(format, args...) }
func Fatal(format string, args ...interface{}) { sugar.Fatalf(format, args...) }
