// Package tasks registers build-pipeline tasks with a task runner:
// spawning commands, removing directory trees and waiting.
package tasks

import (
	"context"
	"io"
	"time"

	"github.com/lambda-feedback/pipetask/internal/clean"
	"github.com/lambda-feedback/pipetask/internal/logsink"
	"github.com/lambda-feedback/pipetask/internal/spawn"
	"github.com/lambda-feedback/pipetask/internal/taskrunner"
	"go.uber.org/zap"
)

// Default commands of the preset spawn tasks.
const (
	NodeCommand             = "node"
	WebpackCommand          = "./node_modules/.bin/webpack"
	WebpackDevServerCommand = "./node_modules/.bin/webpack-dev-server"
	MochaCommand            = "mocha"
)

// Registry is the part of the task runner the helpers register with.
type Registry interface {
	Task(name string, deps []string, fn taskrunner.TaskFunc) error
}

var _ Registry = (*taskrunner.Runner)(nil)

type SpawnOptions struct {
	// Cmd is the command to run
	Cmd string

	// Args is the list of arguments to pass to the command
	Args []string

	// Cwd is the working directory of the command
	Cwd string

	// Env is merged over the environment of the current
	// process and the environment shared by all tasks
	Env map[string]string

	// Tag labels logged output. Defaults to the task name.
	Tag string

	// NoLog discards stdout, unless Stdout is set
	NoLog bool

	// Stdin is piped into the process' stdin
	Stdin io.Reader

	// Stdout receives the process' stdout
	Stdout io.Writer

	// Stderr receives the process' stderr
	Stderr io.Writer
}

type RmdirOptions struct {
	// Dir is the path or glob pattern to remove
	Dir string
}

type DelayOptions struct {
	// Duration is the time to wait
	Duration time.Duration
}

type Params struct {
	// Registry is the task runner to register tasks with
	Registry Registry

	// Sink receives output not claimed by a task. Defaults
	// to a sink logging to Log.
	Sink logsink.Sink

	// Env is the environment shared by all spawn tasks
	Env map[string]string

	// Log is the logger to use for the tasks
	Log *zap.Logger
}

// Tasks creates tasks and registers them with a task runner.
type Tasks struct {
	registry Registry
	spawner  *spawn.Spawner
	env      map[string]string
	log      *zap.Logger
}

func New(params Params) *Tasks {
	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	sink := params.Sink
	if sink == nil {
		sink = logsink.NewZapSink(log.Named("output"))
	}

	return &Tasks{
		registry: params.Registry,
		spawner:  spawn.New(sink, log),
		env:      params.Env,
		log:      log.Named("tasks"),
	}
}

// Register registers an arbitrary task function.
func (t *Tasks) Register(name string, deps []string, fn taskrunner.TaskFunc) error {
	return t.registry.Task(name, deps, fn)
}

// Spawn registers a task which spawns the command when started. By
// default, stdout and stderr are logged, tagged with the task name.
func (t *Tasks) Spawn(name string, deps []string, opts SpawnOptions) error {
	return t.Register(name, deps, func(ctx context.Context) error {
		return t.Exec(ctx, name, opts)
	})
}

// Node registers a spawn task running node, unless opts.Cmd is set.
func (t *Tasks) Node(name string, deps []string, opts SpawnOptions) error {
	return t.Spawn(name, deps, withDefaultCommand(opts, NodeCommand))
}

// Webpack registers a spawn task running the project-local webpack.
func (t *Tasks) Webpack(name string, deps []string, opts SpawnOptions) error {
	return t.Spawn(name, deps, withDefaultCommand(opts, WebpackCommand))
}

// WebpackDevServer registers a spawn task running the
// project-local webpack dev server.
func (t *Tasks) WebpackDevServer(name string, deps []string, opts SpawnOptions) error {
	return t.Spawn(name, deps, withDefaultCommand(opts, WebpackDevServerCommand))
}

// Mocha registers a spawn task running mocha.
func (t *Tasks) Mocha(name string, deps []string, opts SpawnOptions) error {
	return t.Spawn(name, deps, withDefaultCommand(opts, MochaCommand))
}

// Rmdir registers a task which recursively removes
// the files and directories matching opts.Dir.
func (t *Tasks) Rmdir(name string, deps []string, opts RmdirOptions) error {
	return t.Register(name, deps, func(ctx context.Context) error {
		_, err := clean.Remove(ctx, opts.Dir, t.log.With(zap.String("task", name)))
		return err
	})
}

// Delay registers a task which completes after opts.Duration.
func (t *Tasks) Delay(name string, deps []string, opts DelayOptions) error {
	return t.Register(name, deps, func(ctx context.Context) error {
		return sleep(ctx, opts.Duration)
	})
}

// Exec spawns the command described by opts and waits for it to
// exit. The process is not stopped if ctx is cancelled while it runs.
func (t *Tasks) Exec(ctx context.Context, name string, opts SpawnOptions) error {
	tag := opts.Tag
	if tag == "" {
		tag = name
	}

	completion := t.spawner.Run(ctx, spawn.Request{
		Cmd:    opts.Cmd,
		Args:   opts.Args,
		Cwd:    opts.Cwd,
		Env:    mergeEnv(t.env, opts.Env),
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
		Tag:    tag,
		NoLog:  opts.NoLog,
	})

	<-completion.Done()

	return completion.Err()
}

func withDefaultCommand(opts SpawnOptions, cmd string) SpawnOptions {
	if opts.Cmd == "" {
		opts.Cmd = cmd
	}

	return opts
}

func mergeEnv(maps ...map[string]string) map[string]string {
	size := 0
	for _, m := range maps {
		size += len(m)
	}

	if size == 0 {
		return nil
	}

	merged := make(map[string]string, size)
	for _, m := range maps {
		for key, val := range m {
			merged[key] = val
		}
	}

	return merged
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
