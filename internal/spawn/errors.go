package spawn

import (
	"errors"
	"fmt"
)

var ErrEmptyCommand = errors.New("empty command")

// LaunchError reports that the process could not be started.
type LaunchError struct {
	Cmd string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Cmd, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// NonZeroExitError reports that the process ran, but did not exit
// successfully. Code is -1 if the process was terminated by a signal.
type NonZeroExitError struct {
	Cmd    string
	Code   int
	Signal int
}

func (e *NonZeroExitError) Error() string {
	if e.Signal != 0 {
		return fmt.Sprintf("%q terminated by signal %d", e.Cmd, e.Signal)
	}

	return fmt.Sprintf("%q exited with code %d", e.Cmd, e.Code)
}

// StreamError reports a failure copying one of the standard streams.
type StreamError struct {
	Stream string
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stream, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

func IsLaunchError(err error) bool {
	var launchErr *LaunchError
	return errors.As(err, &launchErr)
}

// ExitCode returns the exit code carried by err, if err
// is or wraps a NonZeroExitError.
func ExitCode(err error) (int, bool) {
	var exitErr *NonZeroExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}

	return 0, false
}
