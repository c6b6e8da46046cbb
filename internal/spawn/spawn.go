package spawn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"

	"github.com/lambda-feedback/pipetask/internal/logsink"
	"go.uber.org/zap"
)

// Completion is the one-shot result of a spawned process.
type Completion struct {
	pid  int
	done chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func (c *Completion) resolve(err error) {
	c.err = err
	close(c.done)
}

// Done returns a channel that is closed once the process has exited
// and all of its output has been delivered, or the launch has failed.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the outcome of the process. It returns nil until
// the completion is done.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the completion is done or ctx is cancelled.
// Cancelling ctx stops waiting, it does not stop the process.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.err
	}
}

// Pid returns the process id, or 0 if the process was not started.
func (c *Completion) Pid() int {
	return c.pid
}

// Spawner launches processes and wires their standard streams.
type Spawner struct {
	sink logsink.Sink
	log  *zap.Logger
}

// New creates a spawner writing unclaimed output to sink. If sink is
// nil, output is logged with log.
func New(sink logsink.Sink, log *zap.Logger) *Spawner {
	if log == nil {
		log = zap.NewNop()
	}

	if sink == nil {
		sink = logsink.NewZapSink(log)
	}

	return &Spawner{
		sink: sink,
		log:  log.Named("spawn"),
	}
}

// Exec runs the request and waits for its completion.
func (s *Spawner) Exec(ctx context.Context, req Request) error {
	return s.Run(ctx, req).Wait(ctx)
}

// Run launches the process described by req and returns immediately.
// Launch failures are reported through the returned completion as a
// LaunchError, an unsuccessful exit as a NonZeroExitError.
func (s *Spawner) Run(ctx context.Context, req Request) *Completion {
	c := newCompletion()

	tag := req.tag()

	log := s.log.With(
		zap.String("tag", tag),
		zap.String("command", req.Cmd),
		zap.Strings("args", req.Args),
	)

	launchFailed := func(err error) *Completion {
		log.Debug("launch failed", zap.Error(err))
		c.resolve(&LaunchError{Cmd: req.Cmd, Err: err})
		return c
	}

	if req.Cmd == "" {
		return launchFailed(ErrEmptyCommand)
	}

	// exit early if the context is already cancelled
	if err := ctx.Err(); err != nil {
		return launchFailed(err)
	}

	cmd, err := command(req)
	if err != nil {
		return launchFailed(err)
	}

	// stderr is always claimed, either by the caller or by the log sink
	var stderrFlush io.Closer
	stderr := req.Stderr
	if stderr == nil {
		w := logsink.NewWriter(s.sink, tag)
		stderr, stderrFlush = w, w
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return launchFailed(err)
	}

	// stdout is left unconnected when logging is suppressed, in
	// which case exec connects it to the null device
	var stdoutFlush io.Closer
	stdout := req.Stdout
	if stdout == nil && !req.NoLog {
		w := logsink.NewWriter(s.sink, tag)
		stdout, stdoutFlush = w, w
	}

	var stdoutPipe io.ReadCloser
	if stdout != nil {
		if stdoutPipe, err = cmd.StdoutPipe(); err != nil {
			return launchFailed(err)
		}
	}

	var stdinPipe io.WriteCloser
	if req.Stdin != nil {
		if stdinPipe, err = cmd.StdinPipe(); err != nil {
			return launchFailed(err)
		}
	}

	if err := cmd.Start(); err != nil {
		return launchFailed(err)
	}

	c.pid = cmd.Process.Pid

	log = log.With(zap.Int("pid", c.pid))
	log.Debug("process started")

	outputs := []<-chan error{
		connect("stderr", stderr, stderrPipe, stderrFlush),
	}

	if stdoutPipe != nil {
		outputs = append(outputs, connect("stdout", stdout, stdoutPipe, stdoutFlush))
	}

	var input <-chan error
	if stdinPipe != nil {
		input = feed(stdinPipe, req.Stdin)
	}

	go func() {
		var streamErr error

		// all reads from the pipes must complete before calling wait
		for _, output := range outputs {
			if err := <-output; err != nil && streamErr == nil {
				streamErr = err
			}
		}

		waitErr := cmd.Wait()

		if streamErr == nil && input != nil {
			select {
			case streamErr = <-input:
			default:
			}
		}

		err := result(req.Cmd, waitErr, streamErr)
		if err != nil {
			log.Debug("process failed", zap.Error(err))
		} else {
			log.Debug("process exited")
		}

		c.resolve(err)
	}()

	return c
}

func command(req Request) (*exec.Cmd, error) {
	cwd := req.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cwd = wd
	}

	cmd := exec.Command(req.Cmd, req.Args...)
	cmd.Dir = cwd
	cmd.Env = mergeEnv(os.Environ(), req.Env)

	return cmd, nil
}

// mergeEnv returns a copy of base with overrides applied.
// Overrides win on key collision.
func mergeEnv(base []string, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))

	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		env = append(env, key+"="+overrides[key])
	}

	return env
}

// result maps the outcome of a process to the error reported by its
// completion. An unsuccessful exit takes precedence over stream errors.
func result(cmd string, waitErr, streamErr error) error {
	if waitErr == nil {
		return streamErr
	}

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return waitErr
	}

	err := &NonZeroExitError{
		Cmd:  cmd,
		Code: exitErr.ExitCode(),
	}

	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		// the process was terminated by a signal
		err.Signal = int(status.Signal())
	}

	return err
}
