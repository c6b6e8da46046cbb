package taskrunner

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyTaskName      = errors.New("empty task name")
	ErrNilTaskFunc        = errors.New("nil task function")
	ErrInvalidConcurrency = errors.New("invalid max concurrency")
)

// TaskError reports the failure of a single task.
type TaskError struct {
	Name string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.Name, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a task that is requested or depended
// upon, but not registered.
type NotFoundError struct {
	Name string

	// RequiredBy is the dependent task, empty if
	// the task was requested directly.
	RequiredBy string
}

func (e *NotFoundError) Error() string {
	if e.RequiredBy == "" {
		return fmt.Sprintf("task %q not found", e.Name)
	}

	return fmt.Sprintf("task %q not found (required by %q)", e.Name, e.RequiredBy)
}

// CycleError reports a circular dependency. Path starts
// and ends with the same task.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}
