package internal

import (
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// ParseLogLevel reads ERROR/WARN/INFO/DEBUG/TRACE in any case; anything else is INFO
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LogLevelError
	case "WARN", "WARNING":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	case "TRACE":
		return LogLevelTrace
	}
	return LogLevelInfo
}

// Logger provides leveled logging on top of a logfmt charmbracelet logger.
// Trace goes out at debug level with a trace=true field.
type Logger struct {
	level LogLevel
	out   *charmlog.Logger
}

// NewLogger creates a new logger with the specified level writing to stderr
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a logger writing logfmt lines to w
func NewLoggerTo(w io.Writer, level LogLevel) *Logger {
	out := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		Formatter:       charmlog.LogfmtFormatter,
		Prefix:          "labsignal",
	})
	out.SetLevel(charmLevel(level))
	return &Logger{level: level, out: out}
}

// NewDefaultLogger creates a logger based on LOG_LEVEL environment variable
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLogLevel(os.Getenv("LOG_LEVEL")))
}

func charmLevel(level LogLevel) charmlog.Level {
	switch level {
	case LogLevelError:
		return charmlog.ErrorLevel
	case LogLevelWarn:
		return charmlog.WarnLevel
	case LogLevelInfo:
		return charmlog.InfoLevel
	}
	return charmlog.DebugLevel
}

// With returns a logger that adds key/value pairs to every line
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{level: l.level, out: l.out.With(keyvals...)}
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level >= LogLevelError {
		l.out.Errorf(format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogLevelWarn {
		l.out.Warnf(format, args...)
	}
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogLevelInfo {
		l.out.Infof(format, args...)
	}
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		l.out.Debugf(format, args...)
	}
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	if l.level >= LogLevelTrace {
		l.out.With("trace", true).Debugf(format, args...)
	}
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// Global logger instance
var DefaultLogger = NewDefaultLogger()
