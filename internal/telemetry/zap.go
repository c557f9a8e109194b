package telemetry

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger adapts a *zap.SugaredLogger to the Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger constructs a Logger backed by zap. The context is not
// currently used to derive per-request fields; callers that need request
// scoping should wrap the returned Logger.
func NewZapLogger(l *zap.Logger) Logger {
	return &ZapLogger{sugar: l.Sugar()}
}

// Debug emits a debug-level log entry.
func (z *ZapLogger) Debug(_ context.Context, msg string, keyvals ...any) {
	z.sugar.Debugw(msg, keyvals...)
}

// Info emits an info-level log entry.
func (z *ZapLogger) Info(_ context.Context, msg string, keyvals ...any) {
	z.sugar.Infow(msg, keyvals...)
}

// Warn emits a warning-level log entry.
func (z *ZapLogger) Warn(_ context.Context, msg string, keyvals ...any) {
	z.sugar.Warnw(msg, keyvals...)
}

// Error emits an error-level log entry.
func (z *ZapLogger) Error(_ context.Context, msg string, keyvals ...any) {
	z.sugar.Errorw(msg, keyvals...)
}
