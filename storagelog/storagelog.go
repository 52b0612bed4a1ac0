// Package storagelog is the structured-logging wrapper esoco-storage's
// ambient stack uses in the storage and dialect/sql packages,
// built on go.uber.org/zap. It exists so call sites depend on a small
// interface rather than *zap.Logger directly, and so tests can swap in a
// no-op/observed logger without constructing a real zap core.
package storagelog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the subset of *zap.SugaredLogger's structured API the storage
// layer needs: leveled logging with key/value pairs.
type Logger interface {
	Debugw(msg string, kv ...any)
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
	Errorw(msg string, kv ...any)
}

// zapLogger adapts *zap.SugaredLogger to Logger.
type zapLogger struct{ s *zap.SugaredLogger }

func (l zapLogger) Debugw(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l zapLogger) Infow(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l zapLogger) Warnw(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l zapLogger) Errorw(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

// New builds a Logger backed by a production zap configuration at the
// given level.
func New(level zapcore.Level) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return zapLogger{s: z.Sugar()}, nil
}

// NewDevelopment builds a Logger backed by zap's human-readable
// development configuration, used by cmd/storagectl and local testing.
func NewDevelopment() (Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return zapLogger{s: z.Sugar()}, nil
}

// Nop returns a Logger that discards everything, the default when a host
// application does not configure one.
func Nop() Logger { return zapLogger{s: zap.NewNop().Sugar()} }
