package cmd

import (
	"github.com/lambda-feedback/pipetask/app"
	apprun "github.com/lambda-feedback/pipetask/app/run"
	"github.com/urfave/cli/v2"
)

var (
	runCmdDescription = `The run command loads the pipeline file and runs the given
tasks, together with the tasks they depend on. Each task runs
at most once. Independent tasks run concurrently, bounded by
--max-concurrency.

If no task is given, the "default" task is run.

The command exits with code 1 if any task fails. Tasks not yet
started when a task fails are skipped.
	`
	runCmd = &cli.Command{
		Name:        "run",
		Usage:       "Run pipeline tasks and their dependencies.",
		ArgsUsage:   "[task...]",
		Description: runCmdDescription,
		Action:      runAction,
	}
)

func runAction(ctx *cli.Context) error {
	shell, err := app.New(ctx)
	if err != nil {
		return err
	}

	return shell.Run(ctx.Context, apprun.Module(apprun.Config{
		Tasks: ctx.Args().Slice(),
	}))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, runCmd)
}
