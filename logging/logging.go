// Package logging provides the zap loggers used by the host-side packages
// and bridges them into the firmware core's debug hook.
package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"gyroled/core"
)

// Logger is the structured logger passed around the host-side packages.
type Logger = *zap.SugaredLogger

// NewLoggerConfig returns a new default logger config.
func NewLoggerConfig() zap.Config {
	// zap's development config, but without stacktraces and with colored
	// levels and the production keys.
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a new logger that outputs Info+ logs to stdout.
func NewLogger(name string) Logger {
	return build(NewLoggerConfig(), name)
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout.
func NewDebugLogger(name string) Logger {
	cfg := NewLoggerConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	return build(cfg, name)
}

func build(cfg zap.Config, name string) Logger {
	logger, err := cfg.Build()
	if err != nil {
		// Only reachable with a broken output path.
		return zap.NewNop().Sugar()
	}
	return logger.Sugar().Named(name)
}

// NewTestLogger directs logs to the go test logger.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	logger := zaptest.NewLogger(tb)
	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	logger = logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, observerCore)
	}))
	return logger.Sugar(), observedLogs
}

// DebugWriter adapts logger to the core debug hook. Lines tagged "[FATAL]"
// are logged at error level, everything else at debug.
func DebugWriter(logger Logger) core.DebugWriter {
	return func(msg string) {
		if strings.HasPrefix(msg, "[FATAL]") {
			logger.Error(msg)
			return
		}
		logger.Debug(msg)
	}
}

// RouteCoreDebug points the core debug hook at logger and enables it when the
// logger has debug output turned on.
func RouteCoreDebug(logger Logger) {
	core.SetDebugWriter(DebugWriter(logger))
	core.SetDebugEnabled(logger.Desugar().Core().Enabled(zapcore.DebugLevel))
}
