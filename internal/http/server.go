package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davidbz/ttibu/internal/config"
	"github.com/davidbz/ttibu/internal/http/middleware"
	"github.com/davidbz/ttibu/internal/observability"
)

// Server represents the HTTP server.
type Server struct {
	config      *config.ServerConfig
	handler     *Handler
	metrics     http.Handler
	middlewares middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server. A nil metrics handler leaves /metrics unmounted.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	metrics http.Handler,
	middlewares middleware.Middleware,
) *Server {
	return &Server{
		config:      cfg,
		handler:     handler,
		metrics:     metrics,
		middlewares: middlewares,
		srv:         nil,
	}
}

// Routes builds the routing tree with the middleware chain applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handler.HandleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/keys", s.handler.HandleRegisterKey)
		r.Get("/providers/{provider}/models", s.handler.HandleModels)

		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Post("/chats", s.handler.HandleStartChat)
			r.Get("/chats/{chatID}", s.handler.HandleGetChat)
			r.Get("/events", s.handler.HandleEvents)
			r.Delete("/events", s.handler.HandleUnsubscribe)
		})
	})

	return s.middlewares(r)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
