package pipeline

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

//go:embed schema.json
var schemaJSON string

var schema = gojsonschema.NewStringLoader(schemaJSON)

// Load reads, validates and decodes the pipeline file at path.
// The format is chosen by the file extension.
func Load(path string, log *zap.Logger) (*File, error) {
	if log == nil {
		log = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pipeline file: %w", err)
	}

	parser, err := parserFor(abs)
	if err != nil {
		return nil, err
	}

	data, err := file.Provider(abs).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}

	raw, err := parser.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline file %s: %w", abs, err)
	}

	// validate before loading into koanf, which would
	// split task names containing the key delimiter
	if err := validate(abs, raw); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(raw, ""), nil); err != nil {
		return nil, fmt.Errorf("failed to load pipeline file: %w", err)
	}

	var f File
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{Tag: "conf"}); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline file: %w", err)
	}

	f.path = abs
	f.dir = filepath.Dir(abs)

	log.Debug("loaded pipeline",
		zap.String("file", abs),
		zap.Int("tasks", len(f.Tasks)),
	)

	return &f, nil
}

// LoadEnvFile reads the dotenv file at path.
func LoadEnvFile(path string) (map[string]string, error) {
	data, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	raw, err := dotenv.Parser().Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file %s: %w", path, err)
	}

	env := make(map[string]string, len(raw))
	for key, val := range raw {
		env[key] = fmt.Sprint(val)
	}

	return env, nil
}

// WithEnv returns the pipeline environment merged over base.
func (f *File) WithEnv(base map[string]string) map[string]string {
	env := make(map[string]string, len(base)+len(f.Env))
	for key, val := range base {
		env[key] = val
	}
	for key, val := range f.Env {
		env[key] = val
	}

	return env
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return json.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func validate(path string, raw map[string]any) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("failed to validate pipeline file: %w", err)
	}

	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		errs = append(errs, resultErr.String())
	}

	return &ValidationError{Path: path, Errors: errs}
}
