package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lambda-feedback/pipetask/tasks"
	"go.uber.org/multierr"
)

// Register registers every task of the pipeline file. Relative
// paths are resolved against the directory of the pipeline file.
func (f *File) Register(t *tasks.Tasks) error {
	names := make([]string, 0, len(f.Tasks))
	for name := range f.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := f.register(t, name, f.Tasks[name]); err != nil {
			return err
		}
	}

	return nil
}

func (f *File) register(t *tasks.Tasks, name string, spec TaskSpec) error {
	switch spec.Kind {
	case KindRmdir:
		return t.Rmdir(name, spec.Deps, tasks.RmdirOptions{
			Dir: f.resolve(spec.Dir),
		})
	case KindDelay:
		return t.Delay(name, spec.Deps, tasks.DelayOptions{
			Duration: spec.Duration,
		})
	}

	cmd, ok := defaultCommand(spec.Kind)
	if !ok {
		return &UnknownKindError{Task: name, Kind: spec.Kind}
	}

	opts := tasks.SpawnOptions{
		Cmd:   spec.Cmd,
		Args:  spec.Args,
		Cwd:   f.resolve(spec.Cwd),
		Env:   spec.Env,
		Tag:   spec.Tag,
		NoLog: spec.NoLog,
	}

	if opts.Cwd == "" {
		opts.Cwd = f.dir
	}

	if spec.Stdin == "" && spec.Stdout == "" && spec.Stderr == "" {
		switch spec.Kind {
		case KindNode:
			return t.Node(name, spec.Deps, opts)
		case KindWebpack:
			return t.Webpack(name, spec.Deps, opts)
		case KindWebpackDevServer:
			return t.WebpackDevServer(name, spec.Deps, opts)
		case KindMocha:
			return t.Mocha(name, spec.Deps, opts)
		default:
			return t.Spawn(name, spec.Deps, opts)
		}
	}

	if opts.Cmd == "" {
		opts.Cmd = cmd
	}

	stdio := stdioFiles{
		stdin:  f.resolve(spec.Stdin),
		stdout: f.resolve(spec.Stdout),
		stderr: f.resolve(spec.Stderr),
	}

	// files are opened per run and closed once the process exited
	return t.Register(name, spec.Deps, func(ctx context.Context) (err error) {
		opts := opts

		files, err := stdio.open(&opts)
		defer multierr.AppendInvoke(&err, multierr.Invoke(files.close))
		if err != nil {
			return err
		}

		return t.Exec(ctx, name, opts)
	})
}

// resolve makes relative paths relative to the pipeline file.
func (f *File) resolve(path string) string {
	if path == "" {
		return path
	}

	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(f.dir, path)
}

func defaultCommand(kind Kind) (string, bool) {
	switch kind {
	case KindSpawn:
		return "", true
	case KindNode:
		return tasks.NodeCommand, true
	case KindWebpack:
		return tasks.WebpackCommand, true
	case KindWebpackDevServer:
		return tasks.WebpackDevServerCommand, true
	case KindMocha:
		return tasks.MochaCommand, true
	default:
		return "", false
	}
}

// MARK: - Stdio files

type stdioFiles struct {
	stdin  string
	stdout string
	stderr string
}

type openFiles []*os.File

func (s stdioFiles) open(opts *tasks.SpawnOptions) (openFiles, error) {
	var files openFiles

	if s.stdin != "" {
		file, err := os.Open(s.stdin)
		if err != nil {
			return files, fmt.Errorf("failed to open stdin: %w", err)
		}
		files = append(files, file)
		opts.Stdin = file
	}

	if s.stdout != "" {
		file, err := os.Create(s.stdout)
		if err != nil {
			return files, fmt.Errorf("failed to create stdout: %w", err)
		}
		files = append(files, file)
		opts.Stdout = file
	}

	// stdout and stderr share a single handle
	if s.stderr != "" && s.stderr == s.stdout {
		opts.Stderr = opts.Stdout
		return files, nil
	}

	if s.stderr != "" {
		file, err := os.Create(s.stderr)
		if err != nil {
			return files, fmt.Errorf("failed to create stderr: %w", err)
		}
		files = append(files, file)
		opts.Stderr = file
	}

	return files, nil
}

func (f openFiles) close() error {
	var err error
	for _, file := range f {
		err = multierr.Append(err, file.Close())
	}

	return err
}
