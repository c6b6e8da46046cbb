package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported pipeline file format")

// ValidationError lists every schema violation of a pipeline file.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid pipeline file %s: %s", e.Path, strings.Join(e.Errors, "; "))
}

// UnknownKindError reports a task of a kind that cannot be registered.
type UnknownKindError struct {
	Task string
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("task %q has unknown kind %q", e.Task, e.Kind)
}
