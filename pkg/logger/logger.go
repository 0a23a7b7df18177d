package logger

import (
	"go.uber.org/zap"
)

type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
}

// New returns a sugared zap logger, verbose when debug is set, silent otherwise.
func New(debug bool) *zap.SugaredLogger {
	if !debug {
		return zap.NewNop().Sugar()
	}

	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}

	return l.Sugar()
}
