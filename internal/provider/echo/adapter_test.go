package echo_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/provider/echo"
	"github.com/davidbz/ttibu/internal/provider/registry"
	"github.com/davidbz/ttibu/internal/stream"
)

func newAdapter(t *testing.T) *echo.Adapter {
	t.Helper()

	reg, err := registry.NewDefaultRegistry(&registry.Config{})
	require.NoError(t, err)

	return echo.NewAdapter(reg).WithDelay(0)
}

// replay feeds every chunk through the normalizer the way the gateway does.
func replay(t *testing.T, family domain.ProviderFamily, chunks <-chan domain.RawChunk) (string, bool, domain.Usage) {
	t.Helper()

	var (
		text  strings.Builder
		done  bool
		usage domain.Usage
	)
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		if delta, ok := stream.ExtractDelta(family, chunk.Data); ok {
			text.WriteString(delta)
		}
		if u, ok := stream.ExtractUsage(family, chunk.Data); ok {
			usage = u
		}
		if stream.IsDone(family, chunk.Data) {
			done = true
		}
	}
	return text.String(), done, usage
}

func TestStreamChat_EveryFamily(t *testing.T) {
	tests := []struct {
		provider  string
		family    domain.ProviderFamily
		wantUsage bool
	}{
		{"openai", domain.FamilyOpenAI, true},
		{"claude", domain.FamilyAnthropic, false},
		{"gemini", domain.FamilyGemini, true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			adapter := newAdapter(t)

			chunks, err := adapter.StreamChat(context.Background(), domain.StreamRequest{
				Key:          "k",
				Model:        "any",
				ProviderCode: tt.provider,
				Mode:         domain.ModeDirect,
				Messages:     []domain.Message{{Role: "user", Content: "Hello world"}},
			})
			require.NoError(t, err)

			text, done, usage := replay(t, tt.family, chunks)
			require.Equal(t, "[user]: Hello world", text)
			require.True(t, done)
			if tt.wantUsage {
				require.Equal(t, domain.Usage{PromptTokens: 3, CompletionTokens: 3, TotalTokens: 6}, usage)
			} else {
				require.True(t, usage.IsZero())
			}
		})
	}
}

func TestStreamChat_RelayUsesOpenAIFormat(t *testing.T) {
	adapter := newAdapter(t)

	chunks, err := adapter.StreamChat(context.Background(), domain.StreamRequest{
		Key:          "k",
		Model:        "any",
		ProviderCode: "anthropic",
		Mode:         domain.ModeRelay,
		Messages:     []domain.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	text, done, _ := replay(t, domain.FamilyOpenAI, chunks)
	require.Equal(t, "[user]: hi", text)
	require.True(t, done)
}

func TestStreamChat_EmptyMessages(t *testing.T) {
	adapter := newAdapter(t)

	chunks, err := adapter.StreamChat(context.Background(), domain.StreamRequest{
		Key:          "k",
		Model:        "any",
		ProviderCode: "openai",
	})
	require.NoError(t, err)

	text, done, _ := replay(t, domain.FamilyOpenAI, chunks)
	require.Empty(t, text)
	require.True(t, done)
}

func TestStreamChat_RejectedKey(t *testing.T) {
	adapter := newAdapter(t)

	chunks, err := adapter.StreamChat(context.Background(), domain.StreamRequest{
		Key:          "invalid",
		Model:        "any",
		ProviderCode: "openai",
	})
	require.Nil(t, chunks)
	require.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestStreamChat_UnknownProvider(t *testing.T) {
	adapter := newAdapter(t)

	_, err := adapter.StreamChat(context.Background(), domain.StreamRequest{
		Key:          "k",
		ProviderCode: "mistral",
	})
	require.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestStreamChat_ContextCancellation(t *testing.T) {
	reg, err := registry.NewDefaultRegistry(&registry.Config{})
	require.NoError(t, err)
	adapter := echo.NewAdapter(reg).WithDelay(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	chunks, err := adapter.StreamChat(ctx, domain.StreamRequest{
		Key:          "k",
		ProviderCode: "openai",
		Messages:     []domain.Message{{Role: "user", Content: "one two three four five six seven"}},
	})
	require.NoError(t, err)

	<-chunks
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-chunks:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestTestCredential(t *testing.T) {
	adapter := newAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.TestCredential(ctx, domain.CredentialCheck{Key: "k", ProviderCode: "openai"}))
	require.ErrorIs(t,
		adapter.TestCredential(ctx, domain.CredentialCheck{Key: "invalid", ProviderCode: "openai"}),
		domain.ErrInvalidCredential)
	require.ErrorIs(t,
		adapter.TestCredential(ctx, domain.CredentialCheck{Key: "k", ProviderCode: "nope"}),
		domain.ErrProviderNotFound)
}
