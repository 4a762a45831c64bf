package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// NewJSONLogger returns a logger writing entries to writer at the given
// minimum level.
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		mu:     &sync.Mutex{},
		writer: writer,
		level:  level,
	}
}

func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}

	// Flat entry: fields sit at the top level next to time, level and msg,
	// so one key reaches any run in a grep. Reserved keys are set last and
	// cannot be clobbered by a field of the same name.
	entry := make(map[string]any, len(l.fields)+len(fields)+3)
	for _, f := range l.fields {
		entry[f.Key] = f.Value
	}
	for _, f := range fields {
		entry[f.Key] = f.Value
	}
	entry["time"] = time.Now().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		l.mu.Lock()
		fmt.Fprintf(l.writer, "logging: dropping entry %q: %v\n", msg, err)
		l.mu.Unlock()
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	l.writer.Write(data)
	l.mu.Unlock()
}

func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With returns a child logger carrying fields on every subsequent entry.
// Level, writer and fields are immutable after construction, so no lock
// is needed here; the child shares the parent's write lock.
func (l *JSONLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &JSONLogger{
		mu:     l.mu,
		writer: l.writer,
		level:  l.level,
		fields: merged,
	}
}

var (
	defaultLogger Logger
	defaultOnce   sync.Once
)

// DefaultLogger returns the process-wide fallback used by components that
// were not handed a logger: JSON on stderr, level from TWIN_LOG_LEVEL.
// Stderr keeps log lines out of report output on stdout.
func DefaultLogger() Logger {
	defaultOnce.Do(func() {
		defaultLogger = NewJSONLogger(os.Stderr, ParseLevel(os.Getenv("TWIN_LOG_LEVEL")))
	})
	return defaultLogger
}

// StartTimer opens a timed operation that End or EndError closes with a
// latency field.
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// End logs the operation at info with its latency.
func (t *TimedOperation) End() {
	t.logger.Info(t.msg, append(t.fields, Latency(time.Since(t.start)))...)
}

// EndError logs the operation at error with its latency and the error.
func (t *TimedOperation) EndError(err error) {
	t.logger.Error(t.msg, append(t.fields, Latency(time.Since(t.start)), Error(err))...)
}
