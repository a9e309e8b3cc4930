package observability

import (
	"fmt"
	"log"
	"os"
	"time"
)

// StandardLogger writes structured, key=value formatted lines to stderr.
type StandardLogger struct {
	prefix string
	level  LogLevel
	fields map[string]interface{}
	logger *log.Logger
}

// NewStandardLogger creates a logger with the given prefix at INFO level.
func NewStandardLogger(prefix string) Logger {
	return &StandardLogger{
		prefix: prefix,
		level:  LogLevelInfo,
		logger: log.New(os.Stderr, "", 0),
	}
}

var levelOrder = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
	LogLevelFatal: 4,
}

func (l *StandardLogger) levelEnabled(level LogLevel) bool {
	return levelOrder[level] >= levelOrder[l.level]
}

func (l *StandardLogger) merge(fields map[string]interface{}) map[string]interface{} {
	if len(l.fields) == 0 {
		return fields
	}
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func (l *StandardLogger) log(level LogLevel, msg string, fields map[string]interface{}) {
	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	prefix := fmt.Sprintf("%s [%s] [%s]", ts, level, l.prefix)

	fieldsStr := ""
	for k, v := range l.merge(fields) {
		fieldsStr += fmt.Sprintf(" %s=%v", k, v)
	}

	l.logger.Printf("%s %s%s", prefix, msg, fieldsStr)

	if level == LogLevelFatal {
		os.Exit(1)
	}
}

func (l *StandardLogger) Debug(msg string, fields map[string]interface{}) {
	if l.levelEnabled(LogLevelDebug) {
		l.log(LogLevelDebug, msg, fields)
	}
}

func (l *StandardLogger) Info(msg string, fields map[string]interface{}) {
	if l.levelEnabled(LogLevelInfo) {
		l.log(LogLevelInfo, msg, fields)
	}
}

func (l *StandardLogger) Warn(msg string, fields map[string]interface{}) {
	if l.levelEnabled(LogLevelWarn) {
		l.log(LogLevelWarn, msg, fields)
	}
}

func (l *StandardLogger) Error(msg string, fields map[string]interface{}) {
	l.log(LogLevelError, msg, fields)
}

func (l *StandardLogger) Fatal(msg string, fields map[string]interface{}) {
	l.log(LogLevelFatal, msg, fields)
}

func (l *StandardLogger) Debugf(format string, args ...interface{}) {
	if l.levelEnabled(LogLevelDebug) {
		l.log(LogLevelDebug, fmt.Sprintf(format, args...), nil)
	}
}

func (l *StandardLogger) Infof(format string, args ...interface{}) {
	if l.levelEnabled(LogLevelInfo) {
		l.log(LogLevelInfo, fmt.Sprintf(format, args...), nil)
	}
}

func (l *StandardLogger) Warnf(format string, args ...interface{}) {
	if l.levelEnabled(LogLevelWarn) {
		l.log(LogLevelWarn, fmt.Sprintf(format, args...), nil)
	}
}

func (l *StandardLogger) Errorf(format string, args ...interface{}) {
	l.log(LogLevelError, fmt.Sprintf(format, args...), nil)
}

func (l *StandardLogger) WithPrefix(prefix string) Logger {
	return &StandardLogger{prefix: prefix, level: l.level, fields: l.fields, logger: l.logger}
}

func (l *StandardLogger) With(fields map[string]interface{}) Logger {
	return &StandardLogger{prefix: l.prefix, level: l.level, fields: l.merge(fields), logger: l.logger}
}

// NoopLogger discards everything. Used as the default when the caller
// doesn't care about engine diagnostics.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]interface{}) {}
func (NoopLogger) Info(string, map[string]interface{})  {}
func (NoopLogger) Warn(string, map[string]interface{})  {}
func (NoopLogger) Error(string, map[string]interface{}) {}
func (NoopLogger) Fatal(string, map[string]interface{}) {}
func (NoopLogger) Debugf(string, ...interface{})        {}
func (NoopLogger) Infof(string, ...interface{})         {}
func (NoopLogger) Warnf(string, ...interface{})         {}
func (NoopLogger) Errorf(string, ...interface{})        {}

func (l NoopLogger) WithPrefix(string) Logger                 { return l }
func (l NoopLogger) With(map[string]interface{}) Logger { return l }

// NewNoopLogger returns a Logger that discards all output.
func NewNoopLogger() Logger { return NoopLogger{} }

// NewLogger is the primary logger factory used across the engine.
func NewLogger(prefix string) Logger {
	if prefix == "" {
		prefix = "cache-engine"
	}
	return NewStandardLogger(prefix)
}
