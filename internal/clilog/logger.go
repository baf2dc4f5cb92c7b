// Package clilog wraps zap for the engine's internal diagnostic
// logging: event-handler failures and adapter lifecycle events that
// should never reach the console unless the user asked for verbosity.
package clilog

import "go.uber.org/zap"

// Logger wraps zap for verbose debug output, silent unless enabled.
type Logger struct {
	sugared *zap.SugaredLogger
	adapter string
}

// New builds a Logger. When verbose is false, every method is a no-op.
func New(verbose bool, adapter string) *Logger {
	if !verbose {
		return &Logger{}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	logger, _ := cfg.Build()
	return &Logger{
		sugared: logger.Sugar(),
		adapter: adapter,
	}
}

// Debugf logs a formatted debug message tagged with the active adapter.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.sugared == nil {
		return
	}
	l.sugared.With("adapter", l.adapter).Debugf(format, args...)
}

// Printf adapts Logger to the debugger package's func(format, ...interface{})
// logging hook, so Debugger can be built with clilog without either
// package importing the other's concrete type.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.Debugf(format, args...)
}
