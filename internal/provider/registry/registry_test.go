package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/provider/registry"
)

func testConfig() *registry.Config {
	return &registry.Config{
		OpenAIBaseURL:    "http://openai.test",
		AnthropicBaseURL: "http://anthropic.test",
		GeminiBaseURL:    "http://gemini.test",
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("should register descriptor successfully", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		err := reg.Register(ctx, domain.ProviderDescriptor{
			Code:    "Custom",
			Family:  domain.FamilyOpenAI,
			BaseURL: "http://custom.test",
			Auth:    domain.AuthBearer,
		})
		require.NoError(t, err)

		registered, err := reg.Get(ctx, "custom")
		require.NoError(t, err)
		require.Equal(t, "custom", registered.Code)
		require.Equal(t, domain.FamilyOpenAI, registered.Family)
	})

	t.Run("should return error when code is empty", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(context.Background(), domain.ProviderDescriptor{Family: domain.FamilyOpenAI})
		require.Error(t, err)
		require.Contains(t, err.Error(), "provider code cannot be empty")
	})

	t.Run("should return error when family is missing", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(context.Background(), domain.ProviderDescriptor{Code: "x"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "has no family")
	})

	t.Run("should return error when provider already registered", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()
		descriptor := domain.ProviderDescriptor{Code: "openai", Family: domain.FamilyOpenAI}

		require.NoError(t, reg.Register(ctx, descriptor))

		err := reg.Register(ctx, descriptor)
		require.Error(t, err)
		require.Contains(t, err.Error(), "already registered")
	})
}

func TestRegistry_Get(t *testing.T) {
	reg, err := registry.NewDefaultRegistry(testConfig())
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		code    string
		family  domain.ProviderFamily
		baseURL string
		auth    domain.AuthShape
	}{
		{"openai", domain.FamilyOpenAI, "http://openai.test", domain.AuthBearer},
		{"litellm", domain.FamilyOpenAI, "http://openai.test", domain.AuthBearer},
		{"anthropic", domain.FamilyAnthropic, "http://anthropic.test", domain.AuthHeaderKey},
		{"CLAUDE", domain.FamilyAnthropic, "http://anthropic.test", domain.AuthHeaderKey},
		{"gemini", domain.FamilyGemini, "http://gemini.test", domain.AuthQueryKey},
		{" google ", domain.FamilyGemini, "http://gemini.test", domain.AuthQueryKey},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			descriptor, err := reg.Get(ctx, tt.code)
			require.NoError(t, err)
			require.Equal(t, tt.family, descriptor.Family)
			require.Equal(t, tt.baseURL, descriptor.BaseURL)
			require.Equal(t, tt.auth, descriptor.Auth)
		})
	}

	t.Run("should return not found for unknown code", func(t *testing.T) {
		_, err := reg.Get(ctx, "mistral")
		require.ErrorIs(t, err, domain.ErrProviderNotFound)
	})

	t.Run("should return not found for empty code", func(t *testing.T) {
		_, err := reg.Get(ctx, "")
		require.ErrorIs(t, err, domain.ErrProviderNotFound)
	})
}

func TestRegistry_List(t *testing.T) {
	t.Run("should return empty list when nothing registered", func(t *testing.T) {
		codes, err := registry.NewRegistry().List(context.Background())
		require.NoError(t, err)
		require.NotNil(t, codes)
		require.Empty(t, codes)
	})

	t.Run("should list default codes sorted", func(t *testing.T) {
		reg, err := registry.NewDefaultRegistry(testConfig())
		require.NoError(t, err)

		codes, err := reg.List(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"anthropic", "claude", "gemini", "google", "litellm", "openai"}, codes)
	})
}
