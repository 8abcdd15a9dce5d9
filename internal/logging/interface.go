package logging

import "context"

// LoggerInterface defines the common interface for all loggers.
//
// Messages may carry printf verbs; arguments beyond those consumed by the
// verbs are read as key/value pairs and attached as fields.
type LoggerInterface interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Fatal(format string, args ...interface{})

	SetLevel(level Level)
	GetLevel() Level
}

// ContextLogger extends LoggerInterface with context support.
type ContextLogger interface {
	LoggerInterface
	WithContext(ctx context.Context) ContextLogger
	WithField(key string, value interface{}) ContextLogger
	WithFields(fields map[string]interface{}) ContextLogger
}

var _ ContextLogger = (*Logger)(nil)
