package logsink

import (
	"bytes"
	"io"
	"sync"
)

// Writer splits a byte stream into lines and forwards each
// complete line to a sink under a fixed tag.
type Writer struct {
	mu     sync.Mutex
	sink   Sink
	tag    string
	buf    []byte
	closed bool
}

var _ io.WriteCloser = (*Writer)(nil)

func NewWriter(sink Sink, tag string) *Writer {
	return &Writer{
		sink: sink,
		tag:  tag,
	}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}

	w.buf = append(w.buf, p...)

	start := 0
	for {
		i := bytes.IndexByte(w.buf[start:], '\n')
		if i < 0 {
			break
		}

		w.emit(w.buf[start : start+i])
		start += i + 1
	}

	// keep the trailing partial line for the next write
	w.buf = w.buf[:copy(w.buf, w.buf[start:])]

	return len(p), nil
}

// Close flushes a trailing partial line, if any. Writes
// after Close fail with io.ErrClosedPipe.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}

	w.closed = true

	return nil
}

func (w *Writer) emit(line []byte) {
	w.sink.Line(w.tag, string(bytes.TrimSuffix(line, []byte{'\r'})))
}
