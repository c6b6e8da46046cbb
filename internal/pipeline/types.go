package pipeline

import (
	"time"
)

// DefaultTask is run when no task is named.
const DefaultTask = "default"

type Kind string

const (
	KindSpawn            Kind = "spawn"
	KindNode             Kind = "node"
	KindWebpack          Kind = "webpack"
	KindWebpackDevServer Kind = "webpack-dev-server"
	KindMocha            Kind = "mocha"
	KindRmdir            Kind = "rmdir"
	KindDelay            Kind = "delay"
)

// TaskSpec describes a single task of a pipeline file. Which
// fields apply depends on the kind of the task.
type TaskSpec struct {
	// Kind is the kind of task
	Kind Kind `conf:"kind"`

	// Deps lists the tasks to run before this one
	Deps []string `conf:"deps"`

	// Cmd overrides the command of spawning tasks
	Cmd string `conf:"cmd"`

	// Args is the list of arguments to pass to the command
	Args []string `conf:"args"`

	// Cwd is the working directory of the command, relative
	// to the directory of the pipeline file
	Cwd string `conf:"cwd"`

	// Env is merged over the pipeline environment
	Env map[string]string `conf:"env"`

	// Tag labels logged output
	Tag string `conf:"tag"`

	// NoLog discards stdout, unless Stdout is set
	NoLog bool `conf:"no_log"`

	// Stdin is a file fed to the process' stdin
	Stdin string `conf:"stdin"`

	// Stdout is a file receiving the process' stdout
	Stdout string `conf:"stdout"`

	// Stderr is a file receiving the process' stderr
	Stderr string `conf:"stderr"`

	// Dir is the path or glob pattern removed by rmdir tasks
	Dir string `conf:"dir"`

	// Duration is the time waited by delay tasks
	Duration time.Duration `conf:"duration"`
}

// File is a loaded pipeline file.
type File struct {
	// Env is the environment shared by all spawning tasks
	Env map[string]string `conf:"env"`

	// Tasks maps task names to their definitions
	Tasks map[string]TaskSpec `conf:"tasks"`

	path string
	dir  string
}

// Path returns the absolute path of the pipeline file.
func (f *File) Path() string {
	return f.path
}

// Dir returns the directory relative paths are resolved against.
func (f *File) Dir() string {
	return f.dir
}
