package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TestLogger captures records as JSON lines in memory so tests can assert on
// what a learner logged.
type TestLogger struct {
	mu     *sync.Mutex
	buffer *bytes.Buffer
	level  *Level
	fields map[string]any
}

// NewTestLogger creates a TestLogger that keeps records at or above level.
//
// Example:
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	logger.Info("trained", log.SamplesKey, 20)
//	_ = buf.String()
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	lv := level
	return &TestLogger{
		mu:     &sync.Mutex{},
		buffer: buffer,
		level:  &lv,
		fields: make(map[string]any),
	}, buffer
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.log(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.log(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.log(LevelWarn, msg, fields) }

func (t *TestLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttrKey, err}, fields[1:]...)
		}
	}
	t.log(LevelError, msg, fields)
}

// With returns a child sharing the same buffer and level.
func (t *TestLogger) With(fields ...any) Logger {
	child := &TestLogger{
		mu:     t.mu,
		buffer: t.buffer,
		level:  t.level,
		fields: make(map[string]any, len(t.fields)+len(fields)/2),
	}
	for k, v := range t.fields {
		child.fields[k] = v
	}
	addFields(child.fields, fields)
	return child
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.level <= level
}

func (t *TestLogger) log(level Level, msg string, fields []any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if level < *t.level {
		return
	}
	entry := map[string]any{
		"level":   level.String(),
		"message": msg,
	}
	for k, v := range t.fields {
		entry[k] = v
	}
	addFields(entry, fields)
	data, err := json.Marshal(entry)
	if err != nil {
		data, _ = json.Marshal(map[string]any{"level": level.String(), "message": msg})
	}
	t.buffer.Write(data)
	t.buffer.WriteByte('\n')
}

func addFields(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
			continue
		}
		dst[key] = fields[i+1]
	}
}

// GetBuffer returns the buffer holding captured records.
func (t *TestLogger) GetBuffer() *bytes.Buffer {
	return t.buffer
}

// GetLogEntries parses every captured line.
func (t *TestLogger) GetLogEntries() ([]map[string]any, error) {
	t.mu.Lock()
	raw := t.buffer.String()
	t.mu.Unlock()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any record contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Contains(t.buffer.String(), message)
}

// ContainsField reports whether any record has key set to value.
// Numbers come back from JSON as float64.
func (t *TestLogger) ContainsField(key string, value any) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops captured records.
func (t *TestLogger) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer.Reset()
}

// TestLoggerProvider implements LoggerProvider on top of a TestLogger.
type TestLoggerProvider struct {
	logger *TestLogger
	buffer *bytes.Buffer
}

// NewTestLoggerProvider creates a provider; install it with SetProvider.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	logger, buffer := NewTestLogger(level)
	return &TestLoggerProvider{logger: logger, buffer: buffer}, buffer
}

func (p *TestLoggerProvider) GetLogger() Logger { return p.logger }

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.logger.With(ComponentKey, name)
}

func (p *TestLoggerProvider) SetLevel(level Level) {
	p.logger.mu.Lock()
	defer p.logger.mu.Unlock()
	*p.logger.level = level
}

// Logger exposes the underlying TestLogger for assertions.
func (p *TestLoggerProvider) Logger() *TestLogger { return p.logger }

func (p *TestLoggerProvider) GetBuffer() *bytes.Buffer { return p.buffer }
