package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger is the leveled, printf-style interface the pipeline stages,
// vector stores and CLI log through.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// LogLevel orders message severities. A logger emits messages at its
// configured level and above.
type LogLevel int

const (
	// LogLevelDebug for per-stage decisions: gate verdicts, tie-break scores.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo for request lifecycle messages.
	LogLevelInfo
	// LogLevelWarn for recoverable conditions such as a skipped tie-breaker.
	LogLevelWarn
	// LogLevelError for backend failures.
	LogLevelError
	// LogLevelNone disables all output.
	LogLevelNone
)

// String returns the level name as it appears in log output.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" into a
// LogLevel. Unknown names fall back to LogLevelInfo.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LogLevelDebug
	case "info", "":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "none", "off":
		return LogLevelNone
	default:
		return LogLevelInfo
	}
}

// DefaultLogger writes tagged lines through the standard library's log
// package, which serializes writes, so it is safe for concurrent use.
type DefaultLogger struct {
	logger *log.Logger
	level  LogLevel
}

// NewDefaultLogger writes to stderr with a "[raggate] " prefix.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return NewCustomLogger(os.Stderr, level)
}

// NewCustomLogger writes to out with a "[raggate] " prefix.
func NewCustomLogger(out io.Writer, level LogLevel) *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(out, "[raggate] ", log.LstdFlags),
		level:  level,
	}
}

func (l *DefaultLogger) logf(at LogLevel, format string, v ...any) {
	if l.level > at {
		return
	}
	l.logger.Printf("["+at.String()+"] "+format, v...)
}

func (l *DefaultLogger) Debug(format string, v ...any) { l.logf(LogLevelDebug, format, v...) }
func (l *DefaultLogger) Info(format string, v ...any)  { l.logf(LogLevelInfo, format, v...) }
func (l *DefaultLogger) Warn(format string, v ...any)  { l.logf(LogLevelWarn, format, v...) }
func (l *DefaultLogger) Error(format string, v ...any) { l.logf(LogLevelError, format, v...) }

// NoOpLogger discards everything. Components fall back to it when the
// caller passes no logger, which keeps nil checks out of the hot path.
type NoOpLogger struct{}

func (NoOpLogger) Debug(format string, v ...any) {}
func (NoOpLogger) Info(format string, v ...any)  {}
func (NoOpLogger) Warn(format string, v ...any)  {}
func (NoOpLogger) Error(format string, v ...any) {}

var defaultLogger Logger = NewDefaultLogger(LogLevelInfo)

// SetDefaultLogger replaces the package-level logger used by the
// free-standing Debug/Info/Warn/Error functions.
func SetDefaultLogger(logger Logger) {
	defaultLogger = logger
}

// GetDefaultLogger returns the current package-level logger.
func GetDefaultLogger() Logger {
	return defaultLogger
}

// SetLogLevel installs a stderr DefaultLogger at the given level as the
// package-level logger.
func SetLogLevel(level LogLevel) {
	defaultLogger = NewDefaultLogger(level)
}

// Debug logs through the package-level logger.
func Debug(format string, v ...any) { defaultLogger.Debug(format, v...) }

// Info logs through the package-level logger.
func Info(format string, v ...any) { defaultLogger.Info(format, v...) }

// Warn logs through the package-level logger.
func Warn(format string, v ...any) { defaultLogger.Warn(format, v...) }

// Error logs through the package-level logger.
func Error(format string, v ...any) { defaultLogger.Error(format, v...) }
