package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ttibu/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("should load config with defaults", func(t *testing.T) {
		// Clear environment
		os.Clearenv()

		cfg := config.Load()

		require.NotNil(t, cfg)

		// Verify defaults
		require.Equal(t, 8080, cfg.Server.Port)
		require.Equal(t, 30, cfg.Server.ReadTimeout)
		require.Equal(t, 30, cfg.Server.WriteTimeout)
		require.Equal(t, 20, cfg.Server.ShutdownTimeout)
		require.Contains(t, cfg.CORS.AllowedHeaders, "X-Sealed-Key")

		require.Equal(t, config.AdapterUpstream, cfg.Gateway.Adapter)
		require.Equal(t, config.StoreSQLite, cfg.Store.Driver)
		require.Equal(t, uint(3), cfg.Processor.MaxAttempts)
		require.Equal(t, time.Second, cfg.Processor.RetryDelay)
		require.Zero(t, cfg.Processor.MaxElapsed)
		require.Equal(t, 2000, cfg.Processor.ContextLength)

		require.Equal(t, "https://api.openai.com", cfg.Registry.OpenAIBaseURL)
		require.Equal(t, "2023-06-01", cfg.Upstream.AnthropicVersion)
		require.Equal(t, "config/litellm.yaml", cfg.Catalog.Path)
		require.Equal(t, 5, cfg.Worker.MinWorkers)
		require.Equal(t, 30*time.Minute, cfg.Broadcast.Lifetime)
		require.Equal(t, "@every 15s", cfg.Broadcast.HeartbeatSchedule)
		require.Equal(t, "api", cfg.Summary.Driver)
		require.Equal(t, 150, cfg.SummaryAPI.SummaryMaxLength)
		require.Equal(t, "gpt-4o-mini", cfg.SummaryOpenAI.Model)
		require.Equal(t, "ttibu", cfg.Metrics.Namespace)
		require.Equal(t, "ttibu.db", cfg.SQLite.Path)
		require.Equal(t, "localhost:6379", cfg.Redis.Addr)
		require.Equal(t, "info", cfg.Log.Level)
		require.Empty(t, cfg.Crypto.Secret)
	})

	t.Run("should load config from environment variables", func(t *testing.T) {
		// Set environment variables using t.Setenv for automatic cleanup
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("SERVER_READ_TIMEOUT", "60")
		t.Setenv("GATEWAY_ADAPTER", "echo")
		t.Setenv("GATEWAY_ECHO_DELAY", "50ms")
		t.Setenv("STORE_DRIVER", "redis")
		t.Setenv("CHAT_MAX_ATTEMPTS", "5")
		t.Setenv("CHAT_RETRY_DELAY", "250ms")
		t.Setenv("CREDENTIAL_SECRET", "s3cret")
		t.Setenv("WORKER_MAX", "40")
		t.Setenv("CHAT_MAX_ELAPSED", "2m")
		t.Setenv("SUBSCRIBER_LIFETIME", "5m")
		t.Setenv("SUMMARY_DRIVER", "openai")
		t.Setenv("SUMMARY_OPENAI_API_KEY", "sk-test-key")
		t.Setenv("REDIS_ADDR", "redis:6380")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

		cfg := config.Load()

		require.NotNil(t, cfg)

		// Verify loaded values
		require.Equal(t, 9000, cfg.Server.Port)
		require.Equal(t, 60, cfg.Server.ReadTimeout)
		require.Equal(t, config.AdapterEcho, cfg.Gateway.Adapter)
		require.Equal(t, 50*time.Millisecond, cfg.Gateway.EchoDelay)
		require.Equal(t, config.StoreRedis, cfg.Store.Driver)
		require.Equal(t, uint(5), cfg.Processor.MaxAttempts)
		require.Equal(t, 250*time.Millisecond, cfg.Processor.RetryDelay)
		require.Equal(t, 2*time.Minute, cfg.Processor.MaxElapsed)
		require.Equal(t, "s3cret", cfg.Crypto.Secret)
		require.Equal(t, 40, cfg.Worker.MaxWorkers)
		require.Equal(t, 5*time.Minute, cfg.Broadcast.Lifetime)
		require.Equal(t, "openai", cfg.Summary.Driver)
		require.Equal(t, "sk-test-key", cfg.SummaryOpenAI.APIKey)
		require.Equal(t, "redis:6380", cfg.Redis.Addr)
		require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	})
}

func TestParseDependenciesConfig(t *testing.T) {
	t.Run("should point into the loaded config", func(t *testing.T) {
		os.Clearenv()
		cfg := config.Load()

		deps := config.ParseDependenciesConfig(cfg)

		require.Same(t, &cfg.Server, deps.ServerConfig)
		require.Same(t, &cfg.Crypto, deps.Crypto)
		require.Same(t, &cfg.Broadcast, deps.Broadcast)
		require.Same(t, &cfg.SummaryOpenAI, deps.SummaryOpenAI)

		cfg.Worker.QueueSize = 7
		require.Equal(t, 7, deps.Worker.QueueSize)
	})
}
