package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// Logger buffers request-scoped log entries so one slog record per request
// can carry the whole story. Child loggers share the parent's buffer and
// contribute their own attributes.
type Logger struct {
	mu     sync.Mutex
	parent *Logger
	attrs  []slog.Attr
	buffer *buffer
}

type Entry struct {
	Level   string
	Message string
	At      time.Time
	Seq     uint64
	Attrs   []slog.Attr
}

type buffer struct {
	mu      sync.Mutex
	entries []Entry
	seq     uint64
}

func New(attrs ...slog.Attr) *Logger {
	logger := &Logger{buffer: &buffer{}}
	if len(attrs) > 0 {
		logger.attrs = append(logger.attrs, attrs...)
	}
	return logger
}

func (l *Logger) With(attrs ...slog.Attr) *Logger {
	if len(attrs) == 0 {
		return l
	}
	child := &Logger{parent: l, buffer: l.buffer}
	child.attrs = append(child.attrs, attrs...)
	return child
}

func (l *Logger) Add(attrs ...slog.Attr) {
	if len(attrs) == 0 {
		return
	}
	l.mu.Lock()
	l.attrs = append(l.attrs, attrs...)
	l.mu.Unlock()
}

func (l *Logger) Debug(message string, attrs ...slog.Attr) {
	l.appendEntry("debug", message, attrs...)
}

func (l *Logger) Info(message string, attrs ...slog.Attr) {
	l.appendEntry("info", message, attrs...)
}

func (l *Logger) Warn(message string, attrs ...slog.Attr) {
	l.appendEntry("warn", message, attrs...)
}

func (l *Logger) Error(message string, attrs ...slog.Attr) {
	l.appendEntry("error", message, attrs...)
}

// Flush drains the buffer and returns everything as one grouped attr, ready
// to hang off a single slog record.
func (l *Logger) Flush() slog.Attr {
	buf := l.buffer
	buf.mu.Lock()
	entries := make([]Entry, len(buf.entries))
	copy(entries, buf.entries)
	buf.entries = buf.entries[:0]
	buf.seq = 0
	buf.mu.Unlock()

	payloadAttrs := l.collectAttrs()
	payloadAttrs = append(payloadAttrs, slog.Any("entries", entriesToPayload(entries)))
	payloadArgs := make([]any, 0, len(payloadAttrs))
	for _, attr := range payloadAttrs {
		payloadArgs = append(payloadArgs, attr)
	}
	return slog.Group("", payloadArgs...)
}

func (l *Logger) appendEntry(level, message string, attrs ...slog.Attr) {
	buf := l.buffer
	buf.mu.Lock()
	buf.seq++
	entry := Entry{
		Level:   level,
		Message: message,
		At:      time.Now(),
		Seq:     buf.seq,
	}
	if len(attrs) > 0 {
		entry.Attrs = append(entry.Attrs, attrs...)
	}
	buf.entries = append(buf.entries, entry)
	buf.mu.Unlock()
}

func (l *Logger) collectAttrs() []slog.Attr {
	chain := []*Logger{}
	for current := l; current != nil; current = current.parent {
		chain = append(chain, current)
	}

	attrs := make([]slog.Attr, 0)
	for i := len(chain) - 1; i >= 0; i-- {
		logger := chain[i]
		logger.mu.Lock()
		if len(logger.attrs) > 0 {
			attrs = append(attrs, logger.attrs...)
		}
		logger.mu.Unlock()
	}

	return attrs
}

func entriesToPayload(entries []Entry) []map[string]any {
	payload := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		entryPayload := map[string]any{
			"message": entry.Message,
			"level":   entry.Level,
			"at":      entry.At,
			"seq":     entry.Seq,
		}
		for _, attr := range entry.Attrs {
			if _, exists := entryPayload[attr.Key]; exists {
				continue
			}
			entryPayload[attr.Key] = attr.Value.Any()
		}
		payload = append(payload, entryPayload)
	}
	return payload
}
