package taskrunner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/puddle/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TaskFunc is the body of a task. The context is cancelled once
// another task of the same run has failed.
type TaskFunc func(ctx context.Context) error

// Task is a named unit of work with prerequisite tasks.
type Task struct {
	Name string
	Deps []string
	Fn   TaskFunc
}

type Config struct {
	// MaxConcurrency is the maximum number of tasks running
	// at the same time. Zero means unbounded.
	MaxConcurrency int `conf:"max_concurrency"`
}

type Params struct {
	// Config is the config for the runner
	Config Config

	// Log is the logger to use for the runner
	Log *zap.Logger
}

// Runner resolves task dependencies and runs tasks in dependency
// order. Registration and runs are safe for concurrent use.
type Runner struct {
	mu    sync.RWMutex
	tasks map[string]Task

	slots *puddle.Pool[struct{}]

	log *zap.Logger
}

func New(params Params) (*Runner, error) {
	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := &Runner{
		tasks: make(map[string]Task),
		log:   log.Named("runner"),
	}

	maxConcurrency := params.Config.MaxConcurrency
	if maxConcurrency < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConcurrency, maxConcurrency)
	}

	if maxConcurrency > 0 {
		slots, err := createSlots(maxConcurrency)
		if err != nil {
			return nil, err
		}
		r.slots = slots
	}

	return r, nil
}

// Task registers fn under name, to be run after all deps have
// succeeded. Registering an existing name replaces the task.
func (r *Runner) Task(name string, deps []string, fn TaskFunc) error {
	if name == "" {
		return ErrEmptyTaskName
	}

	if fn == nil {
		return fmt.Errorf("task %q: %w", name, ErrNilTaskFunc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[name]; ok {
		r.log.Warn("replacing task", zap.String("task", name))
	}

	r.tasks[name] = Task{
		Name: name,
		Deps: append([]string(nil), deps...),
		Fn:   fn,
	}

	return nil
}

// Lookup returns the task registered under name.
func (r *Runner) Lookup(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[name]
	return task, ok
}

// Names returns the names of all registered tasks, sorted.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Run runs the named tasks and their dependencies. Every task runs
// at most once per call, after all of its dependencies succeeded.
// Unknown tasks and dependency cycles are reported before any task
// runs. After the first failure no further tasks are started, and
// the failure is returned as a TaskError.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	tasks := r.snapshot()

	if err := validate(tasks, names); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	run := &run{
		runner:  r,
		ctx:     gctx,
		tasks:   tasks,
		results: make(map[string]*result, len(tasks)),
	}

	for _, name := range names {
		name := name
		g.Go(func() error {
			return run.execute(name)
		})
	}

	return g.Wait()
}

// Close releases the resources held by the runner.
func (r *Runner) Close() {
	if r.slots != nil {
		r.slots.Close()
	}
}

func (r *Runner) snapshot() map[string]Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make(map[string]Task, len(r.tasks))
	for name, task := range r.tasks {
		tasks[name] = task
	}

	return tasks
}

// acquire blocks until a slot is available. The returned
// function gives the slot back.
func (r *Runner) acquire(ctx context.Context) (func(), error) {
	if r.slots == nil {
		return func() {}, nil
	}

	slot, err := r.slots.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return slot.Release, nil
}

// MARK: - Run

type result struct {
	once sync.Once
	err  error
}

type run struct {
	runner *Runner
	ctx    context.Context
	tasks  map[string]Task

	resultsLock sync.Mutex
	results     map[string]*result
}

func (r *run) result(name string) *result {
	r.resultsLock.Lock()
	defer r.resultsLock.Unlock()

	res, ok := r.results[name]
	if !ok {
		res = &result{}
		r.results[name] = res
	}

	return res
}

// execute runs the task once. Concurrent callers for the
// same task block until the first one has finished.
func (r *run) execute(name string) error {
	res := r.result(name)

	res.once.Do(func() {
		res.err = r.executeTask(r.tasks[name])
	})

	return res.err
}

func (r *run) executeTask(task Task) error {
	if len(task.Deps) > 0 {
		var deps errgroup.Group
		for _, dep := range task.Deps {
			dep := dep
			deps.Go(func() error {
				return r.execute(dep)
			})
		}

		if err := deps.Wait(); err != nil {
			return err
		}
	}

	// skip the task if the run has been aborted
	if err := r.ctx.Err(); err != nil {
		return err
	}

	// waiting on dependencies does not hold a slot
	release, err := r.runner.acquire(r.ctx)
	if err != nil {
		return err
	}
	defer release()

	log := r.runner.log.With(zap.String("task", task.Name))

	log.Info("starting task")

	start := time.Now()

	if err := task.Fn(r.ctx); err != nil {
		log.Error("task failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return &TaskError{Name: task.Name, Err: err}
	}

	log.Info("finished task", zap.Duration("elapsed", time.Since(start)))

	return nil
}

// MARK: - Validation

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// validate walks the dependency graph of the requested tasks
// and reports unknown tasks and dependency cycles.
func validate(tasks map[string]Task, names []string) error {
	state := make(map[string]visitState, len(tasks))

	var visit func(name, requiredBy string, path []string) error
	visit = func(name, requiredBy string, path []string) error {
		task, ok := tasks[name]
		if !ok {
			return &NotFoundError{Name: name, RequiredBy: requiredBy}
		}

		switch state[name] {
		case visited:
			return nil
		case visiting:
			return &CycleError{Path: cyclePath(path, name)}
		}

		state[name] = visiting
		path = append(path, name)

		for _, dep := range task.Deps {
			if err := visit(dep, name, path); err != nil {
				return err
			}
		}

		state[name] = visited

		return nil
	}

	for _, name := range names {
		if err := visit(name, "", nil); err != nil {
			return err
		}
	}

	return nil
}

func cyclePath(path []string, name string) []string {
	start := 0
	for i, step := range path {
		if step == name {
			start = i
			break
		}
	}

	cycle := make([]string, 0, len(path)-start+1)
	cycle = append(cycle, path[start:]...)

	return append(cycle, name)
}

// MARK: - Slots

func createSlots(size int) (*puddle.Pool[struct{}], error) {
	constructor := func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	}

	destructor := func(struct{}) {}

	return puddle.NewPool(&puddle.Config[struct{}]{
		Constructor: constructor,
		Destructor:  destructor,
		MaxSize:     int32(size),
	})
}
