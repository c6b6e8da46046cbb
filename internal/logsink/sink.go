package logsink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Sink accepts tagged lines of text for diagnostic display.
type Sink interface {
	Line(tag, line string)
}

type zapSink struct {
	log *zap.Logger
}

// NewZapSink returns a sink that logs every line at info level,
// attaching the tag as a structured field.
func NewZapSink(log *zap.Logger) Sink {
	return &zapSink{log: log}
}

func (s *zapSink) Line(tag, line string) {
	s.log.Info(line, zap.String("tag", tag))
}

type prefixSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrefixSink returns a sink that writes every line to w,
// prefixed with the tag in square brackets.
func NewPrefixSink(w io.Writer) Sink {
	return &prefixSink{w: w}
}

func (s *prefixSink) Line(tag, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// best effort
	_, _ = fmt.Fprintf(s.w, "[%s] %s\n", tag, line)
}

// Entry is a single line received by a Memory sink.
type Entry struct {
	Tag  string
	Line string
}

// Memory collects lines in memory. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Sink = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Line(tag, line string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, Entry{Tag: tag, Line: line})
}

// Entries returns a copy of all lines received so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]Entry, len(m.entries))
	copy(entries, m.entries)

	return entries
}

// Text returns the lines received for tag, joined by newlines.
func (m *Memory) Text(tag string) string {
	var lines []string
	for _, entry := range m.Entries() {
		if entry.Tag == tag {
			lines = append(lines, entry.Line)
		}
	}

	return strings.Join(lines, "\n")
}
