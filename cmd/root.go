package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lambda-feedback/pipetask/config"
	"github.com/lambda-feedback/pipetask/internal/shell"
	"github.com/lambda-feedback/pipetask/util/conf"
	"github.com/lambda-feedback/pipetask/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	appName  = "pipetask"
	appUsage = `Run build pipeline tasks, such as spawning commands and
cleaning directories, in dependency order.`
	rootApp = &cli.App{
		Name:            appName,
		Usage:           appUsage,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			// general flags
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level. Options: debug, info, warn, error, panic, fatal.",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "set the log format. Options: production, development.",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.PathFlag{
				Name:    "config",
				Usage:   "an optional json or yaml config file.",
				EnvVars: []string{"PIPETASK_CONFIG"},
			},
			// pipeline flags
			&cli.PathFlag{
				Name:     "file",
				Usage:    "the pipeline file to load.",
				Aliases:  []string{"f"},
				Value:    "pipetask.yaml",
				Category: "pipeline",
				EnvVars:  []string{"PIPETASK_FILE"},
			},
			&cli.StringFlag{
				Name:     "output",
				Usage:    "the format of command output. Options: log, plain.",
				Aliases:  []string{"o"},
				Category: "pipeline",
				EnvVars:  []string{"PIPETASK_OUTPUT"},
			},
			&cli.PathFlag{
				Name:     "env-file",
				Usage:    "a dotenv file with env vars for all spawned commands.",
				Category: "pipeline",
				EnvVars:  []string{"PIPETASK_ENV_FILE"},
			},
			&cli.IntFlag{
				Name:     "max-concurrency",
				Usage:    "the maximum number of tasks running at once. 0 means unbounded.",
				Aliases:  []string{"j"},
				Value:    0,
				Category: "pipeline",
				EnvVars:  []string{"PIPETASK_MAX_CONCURRENCY"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// create the logger
			log, err := createLogger(ctx)
			if err != nil {
				return err
			}

			// inject logger into cli context
			ctx.Context = logging.ContextWithLogger(ctx.Context, log)

			// parse config using defaults, file, env and flags
			cfg, err := conf.Parse[config.Config](conf.ParseOptions{
				Cli:       ctx,
				CliMap:    config.CliMap,
				Defaults:  config.DefaultConfig,
				EnvPrefix: config.EnvPrefix,
				FileName:  ctx.Path("config"),
				Log:       log,
			})
			if err != nil {
				return err
			}

			// inject the config into the cli context
			ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

			return nil
		},
		After: func(ctx *cli.Context) error {
			log, err := logging.LoggerFromContext(ctx.Context)
			if err != nil {
				return err
			}

			log.Sync()

			return nil
		},
	}
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}
}

type ExecuteParams struct {
	Version  string
	Compiled time.Time
}

// Execute runs the cli and returns the exit code.
func Execute(params ExecuteParams) int {
	rootApp.Version = params.Version
	rootApp.Compiled = params.Compiled

	return run(context.Background(), os.Args)
}

func run(ctx context.Context, args []string) int {
	err := rootApp.RunContext(ctx, args)

	// if app exited without error, return
	if err == nil {
		return 0
	}

	// if app exited with ExitError, exit with given exit code
	if shell.IsExitError(err) {
		return shell.ExitCode(err)
	}

	fmt.Fprintf(os.Stderr, "exit error: %s\n", err.Error())

	// otherwise, exit with exit code 1
	return 1
}

func createLogger(ctx *cli.Context) (*zap.Logger, error) {
	level := getLogLevelFromCLI(ctx)
	format := getLogFormatFromCLI(ctx)

	var config zap.Config
	if format == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.InitialFields = map[string]any{
		"app": appName,
	}

	config.Level = level

	return config.Build()
}

func getLogFormatFromCLI(ctx *cli.Context) string {
	format := ctx.String("log-format")
	if format != "" {
		return format
	}

	return "production"
}

func getLogLevelFromCLI(ctx *cli.Context) zap.AtomicLevel {
	lvl := ctx.String("log-level")

	if atom, err := zap.ParseAtomicLevel(lvl); err == nil {
		return atom
	}

	return zap.NewAtomicLevelAt(zap.InfoLevel)
}
