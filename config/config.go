package config

import (
	"github.com/lambda-feedback/pipetask/internal/taskrunner"
	"github.com/lambda-feedback/pipetask/util/conf"
)

// EnvPrefix is the prefix of env vars read into the config.
const EnvPrefix = "PIPETASK_"

// Output formats of spawned command output.
const (
	// OutputLog logs every line through the application logger
	OutputLog = "log"

	// OutputPlain writes every line to stdout, prefixed with its tag
	OutputPlain = "plain"
)

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// File is the pipeline file to load
	File string `conf:"file"`

	// Output is the format of spawned command output
	Output string `conf:"output"`

	// EnvFile is an optional dotenv file, merged
	// beneath the environment of the pipeline file
	EnvFile string `conf:"env_file"`

	// Runner is the task runner configuration
	Runner taskrunner.Config `conf:"runner"`
}

var runnerDefaults = conf.DefaultConfig{
	"max_concurrency": 0,
}

var DefaultConfig = mergeDefaults(
	conf.DefaultConfig{
		"log_format": "production",
		"file":       "pipetask.yaml",
		"output":     OutputLog,
	},
	conf.MergeDefaults("runner", runnerDefaults),
)

// CliMap maps cli flags to nested config keys.
var CliMap = map[string]string{
	"max-concurrency": "runner.max_concurrency",
}

func mergeDefaults(maps ...conf.DefaultConfig) conf.DefaultConfig {
	merged := conf.DefaultConfig{}
	for _, m := range maps {
		for key, val := range m {
			merged[key] = val
		}
	}

	return merged
}
