package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lambda-feedback/pipetask/config"
	"github.com/lambda-feedback/pipetask/internal/logsink"
	"github.com/lambda-feedback/pipetask/internal/pipeline"
	"github.com/lambda-feedback/pipetask/internal/taskrunner"
	"github.com/lambda-feedback/pipetask/tasks"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RunnerParams defines the dependencies for the task runner.
type RunnerParams struct {
	fx.In

	// Config is the config for the task runner
	Config taskrunner.Config

	// Log is the logger to use for the task runner
	Log *zap.Logger
}

func NewLifecycleRunner(params RunnerParams, lc fx.Lifecycle) (*taskrunner.Runner, error) {
	runner, err := taskrunner.New(taskrunner.Params{
		Config: params.Config,
		Log:    params.Log,
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			runner.Close()
			return nil
		},
	})

	return runner, nil
}

var ErrUnknownOutput = errors.New("unknown output format")

// NewSink creates the sink receiving the output of
// spawned commands, in the configured format.
func NewSink(config config.Config, log *zap.Logger) (logsink.Sink, error) {
	return newSink(config.Output, os.Stdout, log)
}

func newSink(output string, w io.Writer, log *zap.Logger) (logsink.Sink, error) {
	switch output {
	case "", config.OutputLog:
		return logsink.NewZapSink(log.Named("output")), nil
	case config.OutputPlain:
		return logsink.NewPrefixSink(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutput, output)
	}
}

func NewPipeline(config config.Config, log *zap.Logger) (*pipeline.File, error) {
	return pipeline.Load(config.File, log)
}

// TasksParams defines the dependencies for the task helpers.
type TasksParams struct {
	fx.In

	Config   config.Config
	Pipeline *pipeline.File
	Runner   *taskrunner.Runner
	Sink     logsink.Sink
	Log      *zap.Logger
}

// NewTasks creates the task helpers and registers
// the tasks of the pipeline file with the runner.
func NewTasks(params TasksParams) (*tasks.Tasks, error) {
	var env map[string]string
	if params.Config.EnvFile != "" {
		var err error
		if env, err = pipeline.LoadEnvFile(params.Config.EnvFile); err != nil {
			return nil, err
		}
	}

	t := tasks.New(tasks.Params{
		Registry: params.Runner,
		Sink:     params.Sink,
		Env:      params.Pipeline.WithEnv(env),
		Log:      params.Log,
	})

	if err := params.Pipeline.Register(t); err != nil {
		return nil, err
	}

	return t, nil
}
