package cliflags_test

import (
	"strings"
	"testing"

	"github.com/lambda-feedback/pipetask/util/cliflags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func readFlags(t *testing.T, args []string, cb func(string) string) map[string]any {
	var values map[string]any

	app := &cli.App{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}},
			&cli.IntFlag{Name: "max-concurrency", Aliases: []string{"j"}},
			&cli.BoolFlag{Name: "verbose"},
			&cli.StringSliceFlag{Name: "tag"},
		},
		Action: func(ctx *cli.Context) error {
			var err error
			values, err = cliflags.Provider(ctx, ".", cb).Read()
			return err
		},
	}

	require.NoError(t, app.Run(append([]string{"test"}, args...)))

	return values
}

func TestProvider_SetFlagsOnly(t *testing.T) {
	values := readFlags(t, []string{"-f", "build.yaml", "--verbose"}, nil)

	assert.Equal(t, map[string]any{
		"file":    "build.yaml",
		"verbose": true,
	}, values)
}

func TestProvider_TransformsNames(t *testing.T) {
	values := readFlags(t, []string{"-j", "3", "--tag", "a", "--tag", "b"}, func(s string) string {
		if s == "max-concurrency" {
			return "runner.max_concurrency"
		}
		return strings.ToUpper(s)
	})

	assert.Equal(t, map[string]any{
		"runner": map[string]any{
			"max_concurrency": 3,
		},
		"TAG": []string{"a", "b"},
	}, values)
}

func TestProvider_ReadBytesUnsupported(t *testing.T) {
	app := &cli.App{
		Name: "test",
		Action: func(ctx *cli.Context) error {
			_, err := cliflags.Provider(ctx, "", nil).ReadBytes()
			assert.Error(t, err)
			return nil
		},
	}

	require.NoError(t, app.Run([]string{"test"}))
}
