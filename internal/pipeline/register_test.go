package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lambda-feedback/pipetask/internal/logsink"
	"github.com/lambda-feedback/pipetask/internal/pipeline"
	"github.com/lambda-feedback/pipetask/internal/taskrunner"
	"github.com/lambda-feedback/pipetask/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	dir    string
	runner *taskrunner.Runner
	sink   *logsink.Memory
	file   *pipeline.File
}

func load(t *testing.T, doc string) *fixture {
	dir := t.TempDir()

	path := filepath.Join(dir, "pipetask.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	f, err := pipeline.Load(path, zap.NewNop())
	require.NoError(t, err)

	runner, err := taskrunner.New(taskrunner.Params{Log: zap.NewNop()})
	require.NoError(t, err)
	t.Cleanup(runner.Close)

	sink := logsink.NewMemory()

	require.NoError(t, f.Register(tasks.New(tasks.Params{
		Registry: runner,
		Sink:     sink,
		Env:      f.WithEnv(nil),
		Log:      zap.NewNop(),
	})))

	return &fixture{
		dir:    dir,
		runner: runner,
		sink:   sink,
		file:   f,
	}
}

func TestRegister_RegistersAllTasks(t *testing.T) {
	fx := load(t, `
tasks:
  clean:
    kind: rmdir
    dir: dist
  wait:
    kind: delay
    duration: 1ms
  default:
    kind: spawn
    deps: [clean, wait]
    cmd: "true"
`)

	assert.Equal(t, []string{"clean", "default", "wait"}, fx.runner.Names())

	task, ok := fx.runner.Lookup(pipeline.DefaultTask)
	require.True(t, ok)
	assert.Equal(t, []string{"clean", "wait"}, task.Deps)
}

func TestRegister_SpawnDefaultsCwdToPipelineDir(t *testing.T) {
	fx := load(t, `
env:
  PIPETASK_STAGE: pipeline
tasks:
  default:
    kind: spawn
    cmd: sh
    args: ["-c", "pwd -P; echo $PIPETASK_STAGE $PIPETASK_TASK"]
    env:
      PIPETASK_TASK: task
`)

	require.NoError(t, fx.runner.Run(context.Background(), pipeline.DefaultTask))

	dir, err := filepath.EvalSymlinks(fx.dir)
	require.NoError(t, err)

	assert.Equal(t, dir+"\npipeline task", fx.sink.Text(pipeline.DefaultTask))
}

func TestRegister_RelativeCwd(t *testing.T) {
	fx := load(t, `
tasks:
  default:
    kind: spawn
    cmd: pwd
    args: ["-P"]
    cwd: sub
`)

	require.NoError(t, os.Mkdir(filepath.Join(fx.dir, "sub"), 0o755))

	require.NoError(t, fx.runner.Run(context.Background(), pipeline.DefaultTask))

	dir, err := filepath.EvalSymlinks(filepath.Join(fx.dir, "sub"))
	require.NoError(t, err)

	assert.Equal(t, dir, fx.sink.Text(pipeline.DefaultTask))
}

func TestRegister_StdioFiles(t *testing.T) {
	fx := load(t, `
tasks:
  default:
    kind: spawn
    cmd: sh
    args: ["-c", "cat; >&2 echo oops"]
    stdin: input.txt
    stdout: out/stdout.log
    stderr: out/stderr.log
`)

	require.NoError(t, os.WriteFile(filepath.Join(fx.dir, "input.txt"), []byte("this is a test\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(fx.dir, "out"), 0o755))

	require.NoError(t, fx.runner.Run(context.Background(), pipeline.DefaultTask))

	stdout, err := os.ReadFile(filepath.Join(fx.dir, "out", "stdout.log"))
	require.NoError(t, err)
	assert.Equal(t, "this is a test\n", string(stdout))

	stderr, err := os.ReadFile(filepath.Join(fx.dir, "out", "stderr.log"))
	require.NoError(t, err)
	assert.Equal(t, "oops\n", string(stderr))

	assert.Empty(t, fx.sink.Entries())
}

func TestRegister_StdoutAndStderrShareFile(t *testing.T) {
	fx := load(t, `
tasks:
  default:
    kind: spawn
    cmd: sh
    args: ["-c", "echo out; >&2 echo err"]
    stdout: out.log
    stderr: ./out.log
`)

	require.NoError(t, fx.runner.Run(context.Background(), pipeline.DefaultTask))

	output, err := os.ReadFile(filepath.Join(fx.dir, "out.log"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"out", "err"}, strings.Fields(string(output)))
}

func TestRegister_StdioFiles_TruncatedPerRun(t *testing.T) {
	fx := load(t, `
tasks:
  default:
    kind: spawn
    cmd: echo
    args: [run]
    stdout: out.log
`)

	for i := 0; i < 2; i++ {
		require.NoError(t, fx.runner.Run(context.Background(), pipeline.DefaultTask))
	}

	stdout, err := os.ReadFile(filepath.Join(fx.dir, "out.log"))
	require.NoError(t, err)
	assert.Equal(t, "run\n", string(stdout))
}

func TestRegister_MissingStdinFile(t *testing.T) {
	fx := load(t, `
tasks:
  default:
    kind: spawn
    cmd: cat
    stdin: missing.txt
`)

	err := fx.runner.Run(context.Background(), pipeline.DefaultTask)

	var taskErr *taskrunner.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegister_PresetWithStdioFile(t *testing.T) {
	fx := load(t, `
tasks:
  default:
    kind: webpack
    args: [--json]
    stdout: stats.json
`)

	bin := filepath.Join(fx.dir, "node_modules", ".bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(bin, "webpack"),
		[]byte("#!/bin/sh\necho \"{\\\"args\\\": \\\"$*\\\"}\"\n"),
		0o755,
	))

	require.NoError(t, fx.runner.Run(context.Background(), pipeline.DefaultTask))

	stats, err := os.ReadFile(filepath.Join(fx.dir, "stats.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"args": "--json"}`, string(stats))
}

func TestRegister_RmdirRelativeToPipelineDir(t *testing.T) {
	fx := load(t, `
tasks:
  default:
    kind: rmdir
    dir: "dist/**/*.map"
`)

	js := filepath.Join(fx.dir, "dist", "js")
	require.NoError(t, os.MkdirAll(js, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(js, "app.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(js, "app.js.map"), []byte("x"), 0o644))

	require.NoError(t, fx.runner.Run(context.Background(), pipeline.DefaultTask))

	assert.FileExists(t, filepath.Join(js, "app.js"))
	assert.NoFileExists(t, filepath.Join(js, "app.js.map"))
}

func TestRegister_UnknownKind(t *testing.T) {
	f := &pipeline.File{
		Tasks: map[string]pipeline.TaskSpec{
			"build": {Kind: "make"},
		},
	}

	runner, err := taskrunner.New(taskrunner.Params{})
	require.NoError(t, err)

	err = f.Register(tasks.New(tasks.Params{Registry: runner}))

	var kindErr *pipeline.UnknownKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, "build", kindErr.Task)
}
