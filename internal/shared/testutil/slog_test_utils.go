package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord represents a captured log record for testing
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recordSink is shared by a handler and every handler derived from it.
type recordSink struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler captures log records for testing
type BufferedSlogHandler struct {
	sink   *recordSink
	attrs  []slog.Attr
	prefix string
	t      *testing.T
}

// NewBufferedSlogHandler creates a new buffered handler for testing
func NewBufferedSlogHandler(t *testing.T) *BufferedSlogHandler {
	return &BufferedSlogHandler{
		sink: &recordSink{},
		t:    t,
	}
}

// Handle implements slog.Handler
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.prefix+a.Key] = a.Value.Any()
		return true
	})

	h.sink.mu.Lock()
	h.sink.records = append(h.sink.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	h.sink.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// Enabled implements slog.Handler
func (h *BufferedSlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler. Derived handlers write to the same buffer.
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		derived.attrs = append(derived.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &derived
}

// WithGroup implements slog.Handler. Group names become dotted key prefixes.
func (h *BufferedSlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.prefix = h.prefix + name + "."
	return &derived
}

// GetRecords returns all captured log records
func (h *BufferedSlogHandler) GetRecords() []LogRecord {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()

	records := make([]LogRecord, len(h.sink.records))
	copy(records, h.sink.records)
	return records
}

// GetRecordsByLevel returns log records filtered by level
func (h *BufferedSlogHandler) GetRecordsByLevel(level slog.Level) []LogRecord {
	var filtered []LogRecord
	for _, r := range h.GetRecords() {
		if r.Level == level {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ContainsMessage checks if any log record contains the given message
func (h *BufferedSlogHandler) ContainsMessage(message string) bool {
	for _, r := range h.GetRecords() {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// ContainsAttr checks if any log record contains the given attribute
func (h *BufferedSlogHandler) ContainsAttr(key string, value any) bool {
	for _, r := range h.GetRecords() {
		if val, ok := r.Attrs[key]; ok && val == value {
			return true
		}
	}
	return false
}

// Clear removes all captured records
func (h *BufferedSlogHandler) Clear() {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.records = h.sink.records[:0]
}

// Count returns the number of captured records
func (h *BufferedSlogHandler) Count() int {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return len(h.sink.records)
}

// NewTestLogger creates a logger with a buffered handler for testing
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	handler := NewBufferedSlogHandler(t)
	return slog.New(handler), handler
}

// AssertLogContains checks if the handler contains a log with the given message
func AssertLogContains(t *testing.T, handler *BufferedSlogHandler, level slog.Level, message string) {
	t.Helper()

	records := handler.GetRecordsByLevel(level)
	for _, r := range records {
		if strings.Contains(r.Message, message) {
			return
		}
	}

	t.Errorf("Expected log message not found at level %s: %q", level, message)
	for _, r := range records {
		t.Logf("  - %s", r.Message)
	}
}

// AssertLogAttr checks if the handler contains a log with the given attribute
func AssertLogAttr(t *testing.T, handler *BufferedSlogHandler, key string, expectedValue any) {
	t.Helper()

	if !handler.ContainsAttr(key, expectedValue) {
		t.Errorf("Expected log attribute not found: %s=%v", key, expectedValue)
		for _, r := range handler.GetRecords() {
			t.Logf("  - %s: %v", r.Message, r.Attrs)
		}
	}
}

// AssertNoErrors checks that no error-level logs were recorded
func AssertNoErrors(t *testing.T, handler *BufferedSlogHandler) {
	t.Helper()

	for _, r := range handler.GetRecordsByLevel(slog.LevelError) {
		t.Errorf("Unexpected error log: %s: %v", r.Message, r.Attrs)
	}
}
