package spawn

import (
	"errors"
	"io"
	"os"
	"syscall"
)

// connect copies src to dst in a separate goroutine. The returned
// channel receives the copy error, if any, and is then closed. If
// flush is set, it is closed after the copy completes.
func connect(name string, dst io.Writer, src io.Reader, flush io.Closer) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer close(done)

		_, err := io.Copy(dst, src)
		if err != nil {
			// keep draining, the process must never block on a full pipe
			_, _ = io.Copy(io.Discard, src)
		}

		if flush != nil {
			if closeErr := flush.Close(); err == nil {
				err = closeErr
			}
		}

		if err != nil {
			done <- &StreamError{Stream: name, Err: err}
		}
	}()

	return done
}

// feed copies src to the stdin pipe of the process and closes the
// pipe afterwards, so that the process observes EOF. A process that
// stops reading its input early is not an error.
func feed(dst io.WriteCloser, src io.Reader) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer close(done)

		_, err := io.Copy(dst, src)
		if err != nil && !isBrokenPipe(err) {
			// report before closing, the process exits only after EOF
			done <- &StreamError{Stream: "stdin", Err: err}
		}

		_ = dst.Close()
	}()

	return done
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}
