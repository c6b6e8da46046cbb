package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lambda-feedback/pipetask/internal/pipeline"
	"github.com/lambda-feedback/pipetask/internal/taskrunner"
	"github.com/lambda-feedback/pipetask/tasks"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInterrupted = errors.New("run interrupted")

// JobParams defines the dependencies for the job.
type JobParams struct {
	fx.In

	// Context is cancelled when the app shuts down
	Context context.Context

	Config Config
	Runner *taskrunner.Runner

	// Tasks is required for the pipeline
	// tasks to be registered before running
	Tasks *tasks.Tasks

	Shutdowner fx.Shutdowner
	Log        *zap.Logger
}

// Job runs the requested tasks once the app has started,
// and shuts the app down when they finished.
type Job struct {
	ctx        context.Context
	targets    []string
	runner     *taskrunner.Runner
	shutdowner fx.Shutdowner

	done        chan struct{}
	err         error
	interrupted bool

	log *zap.Logger
}

func NewJob(params JobParams) *Job {
	targets := params.Config.Tasks
	if len(targets) == 0 {
		targets = []string{pipeline.DefaultTask}
	}

	return &Job{
		ctx:        params.Context,
		targets:    targets,
		runner:     params.Runner,
		shutdowner: params.Shutdowner,
		done:       make(chan struct{}),
		log:        params.Log.Named("job"),
	}
}

func NewLifecycleJob(params JobParams, lc fx.Lifecycle) *Job {
	job := NewJob(params)

	lc.Append(fx.Hook{
		OnStart: job.Start,
		OnStop:  job.Stop,
	})

	return job
}

// Start runs the tasks in the background.
func (j *Job) Start(context.Context) error {
	go j.run()
	return nil
}

// Stop waits for the tasks to finish. It reports an error if
// the run was cut short by the app shutting down.
func (j *Job) Stop(ctx context.Context) error {
	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if j.interrupted {
		return fmt.Errorf("%w: %w", ErrInterrupted, j.err)
	}

	return nil
}

func (j *Job) run() {
	defer close(j.done)

	log := j.log.With(zap.Strings("tasks", j.targets))

	log.Info("running tasks")

	start := time.Now()

	j.err = j.runner.Run(j.ctx, j.targets...)

	// the app context is cancelled on every shutdown, so it
	// only tells an interrupted run apart before shutting down
	j.interrupted = j.err != nil && j.ctx.Err() != nil

	exitCode := 0
	if j.err != nil {
		exitCode = 1
		log.Error("run failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(j.err),
		)
		sentry.CaptureException(j.err)
	} else {
		log.Info("run finished", zap.Duration("elapsed", time.Since(start)))
	}

	if err := j.shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
		log.Debug("failed to shut down", zap.Error(err))
	}
}
