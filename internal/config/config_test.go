package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reasoner-api/internal/shared"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_UPSTREAM_KEY", "sk-secret")
	path := writeConfig(t, `
models:
  fast-reasoner:
    model_name: deepseek-r1
    api_url: https://upstream.test/v1
    api_key: TEST_UPSTREAM_KEY
    reasoning_budget: 4096
    reasoning_format: separate
    extra:
      temperature: 0.6
  plain:
    model_name: qwq-32b
    api_url: https://other.test/v1
    reasoning_budget: 2048
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Models, 2)

	mc, err := cfg.Model("fast-reasoner")
	require.NoError(t, err)
	assert.Equal(t, "deepseek-r1", mc.ModelName)
	assert.Equal(t, "sk-secret", mc.APIKey, "api_key resolves through the environment")
	assert.Equal(t, FormatSeparate, mc.ReasoningFormat)
	assert.Equal(t, 0.6, mc.Extra["temperature"])

	plain, err := cfg.Model("plain")
	require.NoError(t, err)
	assert.Equal(t, FormatInline, plain.ReasoningFormat, "format defaults to inline")
	assert.Empty(t, plain.APIKey)

	assert.Equal(t, []string{"fast-reasoner", "plain"}, cfg.ModelNames())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, shared.ErrConfig)
}

func TestLoadRejectsBadModels(t *testing.T) {
	cases := map[string]string{
		"no models": `models: {}`,
		"missing api_url": `
models:
  broken:
    model_name: m
    reasoning_budget: 100
`,
		"zero budget": `
models:
  broken:
    model_name: m
    api_url: https://upstream.test
    reasoning_budget: 0
`,
		"unknown format": `
models:
  broken:
    model_name: m
    api_url: https://upstream.test
    reasoning_budget: 100
    reasoning_format: sideways
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.ErrorIs(t, err, shared.ErrConfig)
		})
	}
}

func TestModelUnknownName(t *testing.T) {
	cfg := &Config{Models: map[string]ModelConfig{}}
	_, err := cfg.Model("ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConfig)
	assert.Equal(t, 400, shared.HTTPStatus(err))
}
