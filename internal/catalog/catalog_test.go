package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ttibu/internal/catalog"
	"github.com/davidbz/ttibu/internal/domain"
)

const sample = `
model_list:
  - model_name: GPT-4o
    litellm_params:
      model: openai/gpt-4o
  - model_name: ""
    litellm_params:
      model: openai/gpt-4o-mini
  - model_name: Sonnet
    litellm_params:
      model: " Anthropic / claude-sonnet-4 "
  - model_name: no-provider
    litellm_params:
      model: bare-model
  - model_name: missing-params
  - model_name: Shared
    litellm_params:
      model: litellm/gpt-4o
general_settings:
  master_key: sk-ignored
`

func TestCatalog_ModelsFor(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Parse([]byte(sample))
	require.NoError(t, err)

	t.Run("should keep file order and fall back to the code as name", func(t *testing.T) {
		models, err := c.ModelsFor(ctx, "openai")

		require.NoError(t, err)
		require.Equal(t, []domain.ModelEntry{
			{Code: "gpt-4o", Name: "GPT-4o"},
			{Code: "gpt-4o-mini", Name: "gpt-4o-mini"},
		}, models)
	})

	t.Run("should trim and lowercase provider codes", func(t *testing.T) {
		models, err := c.ModelsFor(ctx, "ANTHROPIC")

		require.NoError(t, err)
		require.Equal(t, []domain.ModelEntry{{Code: "claude-sonnet-4", Name: "Sonnet"}}, models)
	})

	t.Run("should fail for unknown providers", func(t *testing.T) {
		_, err := c.ModelsFor(ctx, "mistral")

		require.ErrorIs(t, err, domain.ErrProviderNotFound)
	})

	t.Run("should return a copy", func(t *testing.T) {
		models, err := c.ModelsFor(ctx, "openai")
		require.NoError(t, err)
		models[0].Name = "changed"

		again, err := c.ModelsFor(ctx, "openai")
		require.NoError(t, err)
		require.Equal(t, "GPT-4o", again[0].Name)
	})
}

func TestCatalog_ExistsProvider(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Parse([]byte(sample))
	require.NoError(t, err)

	require.True(t, c.ExistsProvider(ctx, "openai"))
	require.True(t, c.ExistsProvider(ctx, " Litellm "))
	require.False(t, c.ExistsProvider(ctx, "bare-model"))
	require.Equal(t, []string{"openai", "anthropic", "litellm"}, c.Providers())
}

func TestCatalog_ResolveModel(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Parse([]byte(sample))
	require.NoError(t, err)

	testCases := []struct {
		name     string
		ref      string
		provider string
		model    string
	}{
		{name: "bare code", ref: "claude-sonnet-4", provider: "anthropic", model: "claude-sonnet-4"},
		{name: "first provider wins for shared codes", ref: "gpt-4o", provider: "openai", model: "gpt-4o"},
		{name: "qualified reference", ref: "litellm/gpt-4o", provider: "litellm", model: "gpt-4o"},
		{name: "qualified reference to the first provider", ref: "openai/gpt-4o", provider: "openai", model: "gpt-4o"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider, model, err := c.ResolveModel(ctx, tc.ref)

			require.NoError(t, err)
			require.Equal(t, tc.provider, provider)
			require.Equal(t, tc.model, model)
		})
	}

	t.Run("should fail for unknown models", func(t *testing.T) {
		_, _, err := c.ResolveModel(ctx, "bare-model")

		require.ErrorIs(t, err, domain.ErrModelNotFound)
	})
}

func TestCatalog_Load(t *testing.T) {
	t.Run("should load and reload from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "litellm.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

		c, err := catalog.Load(&catalog.Config{Path: path})
		require.NoError(t, err)
		require.True(t, c.ExistsProvider(context.Background(), "openai"))

		require.NoError(t, os.WriteFile(path, []byte("model_list:\n  - model_name: G\n    litellm_params:\n      model: gemini/gemini-2.5-flash\n"), 0o600))
		require.NoError(t, c.Reload(context.Background()))

		require.False(t, c.ExistsProvider(context.Background(), "openai"))
		require.True(t, c.ExistsProvider(context.Background(), "gemini"))
	})

	t.Run("should keep the previous list when the file breaks", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "litellm.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

		c, err := catalog.Load(&catalog.Config{Path: path})
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte("model_list: [unclosed"), 0o600))
		require.Error(t, c.Reload(context.Background()))
		require.True(t, c.ExistsProvider(context.Background(), "openai"))
	})

	t.Run("should fail for a missing file", func(t *testing.T) {
		_, err := catalog.Load(&catalog.Config{Path: filepath.Join(t.TempDir(), "absent.yaml")})

		require.Error(t, err)
	})

	t.Run("should parse the shipped catalog", func(t *testing.T) {
		c, err := catalog.Load(&catalog.Config{Path: filepath.Join("..", "..", "config", "litellm.yaml")})
		require.NoError(t, err)

		for _, provider := range []string{"openai", "anthropic", "gemini"} {
			models, err := c.ModelsFor(context.Background(), provider)
			require.NoError(t, err)
			require.NotEmpty(t, models)
		}
	})
}
