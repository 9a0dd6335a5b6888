package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/ttibu/internal/broadcast"
	"github.com/davidbz/ttibu/internal/catalog"
	"github.com/davidbz/ttibu/internal/config"
	"github.com/davidbz/ttibu/internal/crypto"
	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/http"
	"github.com/davidbz/ttibu/internal/http/middleware"
	"github.com/davidbz/ttibu/internal/metrics"
	"github.com/davidbz/ttibu/internal/observability"
	"github.com/davidbz/ttibu/internal/provider/echo"
	"github.com/davidbz/ttibu/internal/provider/registry"
	"github.com/davidbz/ttibu/internal/provider/upstream"
	"github.com/davidbz/ttibu/internal/routing"
	redisstore "github.com/davidbz/ttibu/internal/store/redis"
	"github.com/davidbz/ttibu/internal/store/sqlite"
	"github.com/davidbz/ttibu/internal/stream"
	"github.com/davidbz/ttibu/internal/summary"
	summaryapi "github.com/davidbz/ttibu/internal/summary/api"
	summaryopenai "github.com/davidbz/ttibu/internal/summary/openai"
	"github.com/davidbz/ttibu/internal/worker"
)

// storeResult exports the selected chat store and its closer.
type storeResult struct {
	dig.Out
	Store  domain.ChatStore
	Closer io.Closer `name:"store"`
}

// app collects everything main drives through the process lifecycle.
type app struct {
	dig.In
	Server      *http.Server
	Broadcaster *broadcast.Broadcaster
	Heartbeater *broadcast.Heartbeater
	Pool        *worker.Pool
	Catalog     *catalog.Catalog
	Store       io.Closer `name:"store"`
	Logger      *zap.Logger
	ServerCfg   *config.ServerConfig
}

func main() {
	container := buildContainer()

	// The logger comes up before any other component logs.
	if err := container.Invoke(func(*zap.Logger) {}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := container.Invoke(run); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func run(a app) error {
	defer func() { _ = a.Logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := observability.FromContext(ctx)

	if err := a.Heartbeater.Start(); err != nil {
		return fmt.Errorf("failed to start heartbeat: %w", err)
	}

	go reloadCatalogOnHangup(ctx, a.Catalog)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server stopped", observability.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(a.ServerCfg.ShutdownTimeout)*time.Second)
	defer cancel()

	// Subscribers go first so open event streams release their connections.
	a.Heartbeater.Stop()
	a.Broadcaster.Close()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Pool.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("worker pool: %w", err))
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}

	logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func reloadCatalogOnHangup(ctx context.Context, cat *catalog.Catalog) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			if err := cat.Reload(ctx); err != nil {
				observability.FromContext(ctx).Warn("catalog reload failed, keeping previous models",
					observability.Error(err))
			}
		}
	}
}

//nolint:funlen // Container wiring reads best as one list
func buildContainer() *dig.Container {
	container := dig.New()

	provide := func(name string, constructor any, opts ...dig.ProvideOption) {
		if err := container.Provide(constructor, opts...); err != nil {
			log.Fatalf("Failed to provide %s: %v", name, err)
		}
	}

	// Configuration
	provide("config", config.Load)
	provide("config dependencies", config.ParseDependenciesConfig)

	// Observability
	provide("logger", observability.InitLogger)
	provide("metrics collector", metrics.NewCollector)
	provide("pipeline metrics", func(c *metrics.Collector) domain.PipelineMetrics { return c })
	provide("broadcast metrics", func(c *metrics.Collector) broadcast.Metrics { return c })

	// Providers and routing
	provide("registry", registry.NewDefaultRegistry)
	provide("provider registry", func(r *registry.Registry) domain.ProviderRegistry { return r })
	provide("catalog", catalog.Load)
	provide("model catalog", func(c *catalog.Catalog) domain.ModelCatalog { return c })
	provide("router", func(c domain.ModelCatalog, r domain.ProviderRegistry) domain.Router {
		return routing.NewRouter(c, r)
	})
	provide("stream adapter", newStreamAdapter)
	provide("normalizer", func() domain.StreamNormalizer { return stream.NewNormalizer() })

	// Credentials, storage and summaries
	provide("sealer", func(cfg *crypto.Config) (domain.CredentialSealer, error) {
		return crypto.NewSealer(cfg)
	})
	provide("chat store", newChatStore)
	provide("summarizer", newSummarizer)

	// Background processing and delivery
	provide("broadcaster", broadcast.NewBroadcaster)
	provide("event publisher", func(b *broadcast.Broadcaster) domain.EventPublisher { return b })
	provide("heartbeater", broadcast.NewHeartbeater)
	provide("worker pool", func(cfg *worker.Config, c *metrics.Collector) *worker.Pool {
		pool := worker.NewPool(cfg)
		c.ObservePool(func() (int, int) {
			stats := pool.Stats()
			return stats.Workers, stats.Queued
		})
		return pool
	})
	provide("task scheduler", func(p *worker.Pool) domain.TaskScheduler { return p })

	// Domain Services
	provide("gateway service", domain.NewGatewayService)
	provide("chat gateway", func(g *domain.GatewayService) domain.ChatGateway { return g })
	provide("chat processor", newChatProcessor)
	provide("turn processor", func(p *domain.ChatProcessor) domain.TurnProcessor { return p })
	provide("chat service", domain.NewChatService)

	// HTTP Layer
	provide("metrics handler", func(c *metrics.Collector) nethttp.Handler { return c.Handler() })
	provide("middleware chain", middleware.BuildMiddlewareChain)
	provide("HTTP handler", http.NewHandler)
	provide("HTTP server", http.NewServer)

	return container
}

func newStreamAdapter(
	cfg *config.GatewayConfig,
	upstreamCfg *upstream.Config,
	reg domain.ProviderRegistry,
) (domain.StreamAdapter, error) {
	switch cfg.Adapter {
	case config.AdapterUpstream:
		return upstream.NewAdapter(upstreamCfg, reg), nil
	case config.AdapterEcho:
		return echo.NewAdapter(reg).WithDelay(cfg.EchoDelay), nil
	default:
		return nil, fmt.Errorf("unknown gateway adapter %q", cfg.Adapter)
	}
}

func newChatStore(
	cfg *config.StoreConfig,
	sqliteCfg *sqlite.Config,
	redisCfg *redisstore.Config,
) (storeResult, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		store, err := sqlite.Open(sqliteCfg)
		if err != nil {
			return storeResult{}, err
		}
		return storeResult{Store: store, Closer: store}, nil
	case config.StoreRedis:
		store := redisstore.NewStore(redisstore.NewClient(redisCfg), redisCfg)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return storeResult{}, err
		}
		return storeResult{Store: store, Closer: store}, nil
	default:
		return storeResult{}, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func newSummarizer(
	cfg *summary.Config,
	apiCfg *summaryapi.Config,
	openaiCfg *summaryopenai.Config,
) (domain.Summarizer, error) {
	switch cfg.Driver {
	case summary.DriverAPI:
		return summaryapi.NewClient(apiCfg), nil
	case summary.DriverOpenAI:
		return summaryopenai.NewSummarizer(openaiCfg)
	case summary.DriverNone:
		return summary.Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown summary driver %q", cfg.Driver)
	}
}

func newChatProcessor(
	gateway domain.ChatGateway,
	store domain.ChatStore,
	sealer domain.CredentialSealer,
	summarizer domain.Summarizer,
	publisher domain.EventPublisher,
	pipelineMetrics domain.PipelineMetrics,
	cfg *config.ProcessorConfig,
) *domain.ChatProcessor {
	return domain.NewChatProcessor(gateway, store, sealer, summarizer, publisher, pipelineMetrics,
		domain.ProcessorOptions{
			MaxAttempts:   cfg.MaxAttempts,
			RetryDelay:    cfg.RetryDelay,
			MaxElapsed:    cfg.MaxElapsed,
			ContextLength: cfg.ContextLength,
		})
}
