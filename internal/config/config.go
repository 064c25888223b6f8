// Package config loads the served-model map from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"reasoner-api/internal/shared"
)

// ReasoningFormat selects where reasoning text lands in client-facing
// output: inline between the think delimiters in content, or in the
// dedicated reasoning_content field.
type ReasoningFormat string

const (
	FormatInline   ReasoningFormat = "inline"
	FormatSeparate ReasoningFormat = "separate"
)

// ModelConfig describes one served model. The api_key field in the file
// names an environment variable; the resolved secret replaces it at load
// time. Read-only after Load.
type ModelConfig struct {
	ModelName       string          `koanf:"model_name"`
	APIURL          string          `koanf:"api_url"`
	APIKey          string          `koanf:"api_key"`
	ReasoningBudget int             `koanf:"reasoning_budget"`
	ReasoningFormat ReasoningFormat `koanf:"reasoning_format"`
	Extra           map[string]any  `koanf:"extra"`
}

type Config struct {
	Models map[string]ModelConfig `koanf:"models"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, errors.Join(shared.ErrConfig, fmt.Errorf("failed reading %s", path), err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Join(shared.ErrConfig, err)
	}
	if len(cfg.Models) == 0 {
		return nil, errors.Join(shared.ErrConfig, fmt.Errorf("no models defined in %s", path))
	}

	for name, mc := range cfg.Models {
		if mc.ModelName == "" || mc.APIURL == "" {
			return nil, errors.Join(shared.ErrConfig, fmt.Errorf("model %s missing model_name or api_url", name))
		}
		if mc.ReasoningBudget <= 0 {
			return nil, errors.Join(shared.ErrConfig, fmt.Errorf("model %s needs a positive reasoning_budget", name))
		}
		switch mc.ReasoningFormat {
		case FormatInline, FormatSeparate:
		case "":
			mc.ReasoningFormat = FormatInline
		default:
			return nil, errors.Join(shared.ErrConfig, fmt.Errorf("model %s has unknown reasoning_format %q", name, mc.ReasoningFormat))
		}
		// api_key names an env var, never the secret itself
		mc.APIKey = os.Getenv(mc.APIKey)
		cfg.Models[name] = mc
	}

	return &cfg, nil
}

// Model resolves a served-model name. Unknown names are a client error.
func (c *Config) Model(name string) (*ModelConfig, error) {
	mc, ok := c.Models[name]
	if !ok {
		return nil, errors.Join(
			&shared.RequestError{StatusCode: 400, Err: fmt.Errorf("unknown model %q", name)},
			shared.ErrConfig,
		)
	}
	return &mc, nil
}

// ModelNames returns served names in stable order for the model listing.
func (c *Config) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
