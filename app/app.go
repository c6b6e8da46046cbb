package app

import (
	"github.com/lambda-feedback/pipetask/config"
	"github.com/lambda-feedback/pipetask/internal/shell"
	"github.com/lambda-feedback/pipetask/util/conf"
	"github.com/lambda-feedback/pipetask/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	config, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(config),
		// provide runner config
		fx.Supply(config.Runner),
	)

	return shell.New(log, sharedModule), nil
}
