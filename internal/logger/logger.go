// Package logger builds the process logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger and its sugared form.
type Logger struct {
	*zap.SugaredLogger
	base *zap.Logger
}

// NewLogger builds a production logger, or a development one when dev is set.
func NewLogger(dev bool) (*Logger, error) {
	config := zap.NewProductionConfig()
	if dev {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: logger.Sugar(), base: logger}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	base := zap.NewNop()
	return &Logger{SugaredLogger: base.Sugar(), base: base}
}

// Zap returns the structured logger handed to components.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Named returns a structured child logger for a component.
func (l *Logger) Named(name string) *zap.Logger {
	return l.base.Named(name)
}
