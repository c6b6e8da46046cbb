package spawn

import "io"

// Request describes a single process invocation. A request is
// consumed once; the spawner never mutates it.
type Request struct {
	// Cmd is the path or name of the binary to execute
	Cmd string

	// Args is the list of arguments to pass to the command
	Args []string

	// Cwd is the working directory in which the binary should be
	// executed. Defaults to the working directory of the current
	// process.
	Cwd string

	// Env is a map of environment variables merged over the
	// environment of the current process. Entries in Env take
	// precedence on key collision.
	Env map[string]string

	// Stdin, if set, is copied to the standard input of the process.
	Stdin io.Reader

	// Stdout, if set, receives the standard output of the process.
	// Otherwise stdout is written to the log sink, unless NoLog is set.
	Stdout io.Writer

	// Stderr, if set, receives the standard error of the process.
	// Otherwise stderr is always written to the log sink.
	Stderr io.Writer

	// Tag labels the lines written to the log sink.
	// Defaults to Cmd.
	Tag string

	// NoLog discards stdout instead of logging it, if Stdout is unset.
	NoLog bool
}

func (r Request) tag() string {
	if r.Tag != "" {
		return r.Tag
	}

	return r.Cmd
}
