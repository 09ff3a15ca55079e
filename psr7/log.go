package psr7

import (
	"log"
)

// LogLevel is a log level.
type LogLevel int

// Log levels.
const (
	LogLevelDebug LogLevel = iota + 1
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

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
	default:
		return "UNKNOWN"
	}
}

// LogFunc is the prototype of the log function used by components that talk to
// remote backends.
type LogFunc func(level LogLevel, format string, args ...any)

// DefaultLog writes through the standard logger with a level prefix.
func DefaultLog(level LogLevel, format string, args ...any) {
	log.Printf("["+level.String()+"] "+format, args...)
}

// NopLog discards everything.
func NopLog(LogLevel, string, ...any) {}
