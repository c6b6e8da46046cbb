package run

import (
	"go.uber.org/fx"

	"github.com/lambda-feedback/pipetask/util/logging"
)

func Module(config Config) fx.Option {
	return fx.Module(
		"run",
		// provide run config
		fx.Supply(config),
		// rename logger for module
		logging.DecorateLogger("run"),
		// provide task runner
		fx.Provide(NewLifecycleRunner),
		// provide output sink
		fx.Provide(NewSink),
		// provide pipeline file
		fx.Provide(NewPipeline),
		// provide task helpers, registering the pipeline tasks
		fx.Provide(NewTasks),
		// provide job
		fx.Provide(NewLifecycleJob),
		// invoke job
		fx.Invoke(func(*Job) {}),
	)
}
