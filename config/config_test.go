package config_test

import (
	"testing"

	"github.com/lambda-feedback/pipetask/config"
	"github.com/lambda-feedback/pipetask/util/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := conf.Parse[config.Config](conf.ParseOptions{
		Defaults:  config.DefaultConfig,
		EnvPrefix: "PIPETASK_CONFIG_TEST_",
	})
	require.NoError(t, err)

	assert.Equal(t, "pipetask.yaml", cfg.File)
	assert.Equal(t, "production", cfg.LogFormat)
	assert.Equal(t, config.OutputLog, cfg.Output)
	assert.Empty(t, cfg.EnvFile)
	assert.Zero(t, cfg.Runner.MaxConcurrency)
}

func TestConfig_Env(t *testing.T) {
	t.Setenv("PIPETASK_ENV_FILE", ".env.ci")
	t.Setenv("PIPETASK_RUNNER__MAX_CONCURRENCY", "2")

	cfg, err := conf.Parse[config.Config](conf.ParseOptions{
		Defaults:  config.DefaultConfig,
		EnvPrefix: config.EnvPrefix,
	})
	require.NoError(t, err)

	assert.Equal(t, ".env.ci", cfg.EnvFile)
	assert.Equal(t, 2, cfg.Runner.MaxConcurrency)
}
