package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/lambda-feedback/pipetask/config"
	"github.com/lambda-feedback/pipetask/internal/pipeline"
	"github.com/lambda-feedback/pipetask/util/conf"
	"github.com/lambda-feedback/pipetask/util/logging"
	"github.com/urfave/cli/v2"
)

var (
	listCmd = &cli.Command{
		Name:   "list",
		Usage:  "List the tasks of the pipeline file.",
		Action: listAction,
	}
)

func listAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	file, err := pipeline.Load(cfg.File, log)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(file.Tasks))
	for name := range file.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(ctx.App.Writer, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "TASK\tKIND\tDEPS")
	for _, name := range names {
		task := file.Tasks[name]
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, task.Kind, strings.Join(task.Deps, ", "))
	}

	return w.Flush()
}

func init() {
	rootApp.Commands = append(rootApp.Commands, listCmd)
}
