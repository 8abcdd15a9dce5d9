package logging

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel maps a level name to a Level. Unknown names mean InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// levelState is shared by a logger and every logger derived from it, so that
// SetLevel on the root affects all of them.
type levelState struct {
	mu    sync.RWMutex
	level Level
}

// Logger is a ContextLogger backed by zerolog.
type Logger struct {
	zl    zerolog.Logger
	state *levelState
}

// NewLogger creates a logger writing JSON lines to w.
func NewLogger(w io.Writer, level string) *Logger {
	return &Logger{
		zl:    zerolog.New(w).With().Timestamp().Logger(),
		state: &levelState{level: ParseLevel(level)},
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{
		zl:    zerolog.Nop(),
		state: &levelState{level: ErrorLevel},
	}
}

func (l *Logger) SetLevel(level Level) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.level = level
}

func (l *Logger) GetLevel() Level {
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	return l.state.level
}

func (l *Logger) shouldLog(level Level) bool {
	return level >= l.GetLevel()
}

// WithContext returns a logger carrying the run and request IDs found in ctx.
func (l *Logger) WithContext(ctx context.Context) ContextLogger {
	fields := map[string]interface{}{}
	if runID, ok := RunIDFromContext(ctx); ok {
		fields["run_id"] = runID
	}
	if requestID, ok := RequestIDFromContext(ctx); ok {
		fields["request_id"] = requestID
	}
	if len(fields) == 0 {
		return l
	}
	return l.WithFields(fields)
}

func (l *Logger) WithField(key string, value interface{}) ContextLogger {
	return &Logger{
		zl:    l.zl.With().Interface(key, value).Logger(),
		state: l.state,
	}
}

func (l *Logger) WithFields(fields map[string]interface{}) ContextLogger {
	return &Logger{
		zl:    l.zl.With().Fields(fields).Logger(),
		state: l.state,
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DebugLevel, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(InfoLevel, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WarnLevel, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ErrorLevel, format, args...)
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(format string, args ...interface{}) {
	msg, fields := splitArgs(format, args)
	l.zl.Fatal().Fields(fields).Msg(msg)
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}
	msg, fields := splitArgs(format, args)
	ev := l.zl.WithLevel(level.zerolog())
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(msg)
}

// splitArgs formats the printf verbs in format with the leading args and
// turns whatever is left into key/value fields. A dangling value is stored
// under "extra".
func splitArgs(format string, args []interface{}) (string, map[string]interface{}) {
	verbs := countVerbs(format)
	msg := format
	if verbs > 0 && len(args) >= verbs {
		msg = fmt.Sprintf(format, args[:verbs]...)
		args = args[verbs:]
	}
	if len(args) == 0 {
		return msg, nil
	}

	fields := make(map[string]interface{}, len(args)/2+1)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields[key] = args[i+1]
	}
	if len(args)%2 == 1 {
		fields["extra"] = args[len(args)-1]
	}
	return msg, fields
}

func countVerbs(format string) int {
	n := 0
	for i := 0; i < len(format)-1; i++ {
		if format[i] != '%' {
			continue
		}
		if format[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}
