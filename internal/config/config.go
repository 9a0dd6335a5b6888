package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/ttibu/internal/broadcast"
	"github.com/davidbz/ttibu/internal/catalog"
	"github.com/davidbz/ttibu/internal/crypto"
	"github.com/davidbz/ttibu/internal/metrics"
	"github.com/davidbz/ttibu/internal/observability"
	"github.com/davidbz/ttibu/internal/provider/registry"
	"github.com/davidbz/ttibu/internal/provider/upstream"
	redisstore "github.com/davidbz/ttibu/internal/store/redis"
	"github.com/davidbz/ttibu/internal/store/sqlite"
	"github.com/davidbz/ttibu/internal/summary"
	summaryapi "github.com/davidbz/ttibu/internal/summary/api"
	summaryopenai "github.com/davidbz/ttibu/internal/summary/openai"
	"github.com/davidbz/ttibu/internal/worker"
)

// Adapter names accepted by GatewayConfig.Adapter.
const (
	AdapterUpstream = "upstream"
	AdapterEcho     = "echo"
)

// Store drivers accepted by StoreConfig.Driver.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config represents the gateway configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Log       observability.LogConfig
	Gateway   GatewayConfig
	Processor ProcessorConfig
	Store     StoreConfig

	Registry      registry.Config
	Upstream      upstream.Config
	Catalog       catalog.Config
	Crypto        crypto.Config
	Worker        worker.Config
	Broadcast     broadcast.Config
	Metrics       metrics.Config
	SQLite        sqlite.Config
	Redis         redisstore.Config
	Summary       summary.Config
	SummaryAPI    summaryapi.Config
	SummaryOpenAI summaryopenai.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int `env:"SERVER_PORT"             envDefault:"8080"`
	ReadTimeout     int `env:"SERVER_READ_TIMEOUT"     envDefault:"30"`
	WriteTimeout    int `env:"SERVER_WRITE_TIMEOUT"    envDefault:"30"`
	ShutdownTimeout int `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"20"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization,X-Sealed-Key"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// GatewayConfig selects the stream adapter.
//   - Adapter: "upstream" calls real providers, "echo" answers locally
//   - EchoDelay: pause between echo frames
type GatewayConfig struct {
	Adapter   string        `env:"GATEWAY_ADAPTER"    envDefault:"upstream"`
	EchoDelay time.Duration `env:"GATEWAY_ECHO_DELAY" envDefault:"0s"`
}

// ProcessorConfig tunes the background chat processor.
type ProcessorConfig struct {
	MaxAttempts   uint          `env:"CHAT_MAX_ATTEMPTS"   envDefault:"3"`
	RetryDelay    time.Duration `env:"CHAT_RETRY_DELAY"    envDefault:"1s"`
	MaxElapsed    time.Duration `env:"CHAT_MAX_ELAPSED"    envDefault:"0s"`
	ContextLength int           `env:"CHAT_CONTEXT_LENGTH" envDefault:"2000"`
}

// StoreConfig selects the chat store.
type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" envDefault:"sqlite"`
}

// DepConfig is used for dependency injection with dig.
// Package configs share the type name Config, so fields are named.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*GatewayConfig
	*ProcessorConfig
	*StoreConfig
	Log           *observability.LogConfig
	Registry      *registry.Config
	Upstream      *upstream.Config
	Catalog       *catalog.Config
	Crypto        *crypto.Config
	Worker        *worker.Config
	Broadcast     *broadcast.Config
	Metrics       *metrics.Config
	SQLite        *sqlite.Config
	Redis         *redisstore.Config
	Summary       *summary.Config
	SummaryAPI    *summaryapi.Config
	SummaryOpenAI *summaryopenai.Config
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Out:             dig.Out{},
		ServerConfig:    &cfg.Server,
		CORSConfig:      &cfg.CORS,
		GatewayConfig:   &cfg.Gateway,
		ProcessorConfig: &cfg.Processor,
		StoreConfig:     &cfg.Store,
		Log:             &cfg.Log,
		Registry:        &cfg.Registry,
		Upstream:        &cfg.Upstream,
		Catalog:         &cfg.Catalog,
		Crypto:          &cfg.Crypto,
		Worker:          &cfg.Worker,
		Broadcast:       &cfg.Broadcast,
		Metrics:         &cfg.Metrics,
		SQLite:          &cfg.SQLite,
		Redis:           &cfg.Redis,
		Summary:         &cfg.Summary,
		SummaryAPI:      &cfg.SummaryAPI,
		SummaryOpenAI:   &cfg.SummaryOpenAI,
	}
}
