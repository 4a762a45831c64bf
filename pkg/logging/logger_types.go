package logging

import (
	"io"
	"strings"
	"sync"
	"time"
)

// Level is the minimum severity a logger emits. A logger's level is fixed
// at construction; pick it once from config and inject the logger.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a config string to a Level. Unrecognized strings fall
// back to Info so a typo in config surfaces logs instead of silencing them.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
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

// Field is one key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// Logger is the contract engine components accept. Implementations must be
// safe for concurrent use.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger that attaches fields to every entry.
	With(fields ...Field) Logger
}

// JSONLogger writes one flat JSON object per entry. Children created by
// With share the parent's writer and lock, so lines never interleave
// across a logger tree.
type JSONLogger struct {
	mu     *sync.Mutex
	writer io.Writer
	level  Level
	fields []Field
}

// NopLogger discards everything. The zero value is ready to use.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}

func (n NopLogger) With(...Field) Logger { return n }

// NewNopLogger returns a Logger that discards all output.
func NewNopLogger() Logger {
	return NopLogger{}
}

// TimedOperation carries an operation's start time between StartTimer and
// End or EndError.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}
