package logger

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogMessage is a captured log line
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

type capture struct {
	mu       sync.Mutex
	messages []LogMessage
}

// TestLogger captures every message in memory so tests can assert on them.
// Derived loggers from WithField/WithError share the same capture buffer.
type TestLogger struct {
	store  *capture
	fields map[string]interface{}
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{store: &capture{}, fields: map[string]interface{}{}}
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, f map[string]interface{}) { l.log("DEBUG", msg, f) }
func (l *TestLogger) InfoWithFields(msg string, f map[string]interface{})  { l.log("INFO", msg, f) }
func (l *TestLogger) WarnWithFields(msg string, f map[string]interface{})  { l.log("WARN", msg, f) }
func (l *TestLogger) ErrorWithFields(msg string, f map[string]interface{}) { l.log("ERROR", msg, f) }

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return &TestLogger{store: l.store, fields: merge(l.fields, fields)}
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *TestLogger) WithContext(ctx context.Context) Logger { return l }

func (l *TestLogger) GetZerolog() *zerolog.Logger {
	z := zerolog.Nop()
	return &z
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.messages = append(l.store.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  merge(l.fields, fields),
	})
}

// GetMessages returns a copy of all captured messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	out := make([]LogMessage, len(l.store.messages))
	copy(out, l.store.messages)
	return out
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, m := range l.GetMessages() {
		if m.Level == level {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, m := range l.GetMessages() {
		if m.Message == text {
			return true
		}
	}
	return false
}

// Clear clears all captured messages
func (l *TestLogger) Clear() {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.messages = nil
}

func merge(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
