package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/davidbz/ttibu/internal/observability"
)

// Heartbeater pings every subscriber on a cron schedule so idle proxies keep the stream open.
type Heartbeater struct {
	broadcaster *Broadcaster
	schedule    string
	cron        *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewHeartbeater creates a new heartbeat scheduler (DI constructor).
func NewHeartbeater(cfg *Config, broadcaster *Broadcaster) *Heartbeater {
	return &Heartbeater{
		broadcaster: broadcaster,
		schedule:    cfg.HeartbeatSchedule,
		cron:        cron.New(),
	}
}

// Start schedules the heartbeat. An empty schedule disables it.
func (h *Heartbeater) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger := observability.FromContext(context.Background())

	if h.schedule == "" {
		logger.Info("heartbeat schedule not configured, skipping")
		return nil
	}
	if h.running {
		return nil
	}

	if _, err := cron.ParseStandard(h.schedule); err != nil {
		return fmt.Errorf("invalid heartbeat schedule %q: %w", h.schedule, err)
	}

	if _, err := h.cron.AddFunc(h.schedule, h.broadcaster.Heartbeat); err != nil {
		return fmt.Errorf("failed to schedule heartbeat: %w", err)
	}

	h.cron.Start()
	h.running = true

	logger.Info("heartbeat scheduler started", observability.String("schedule", h.schedule))
	return nil
}

// Stop halts the schedule and waits for a running heartbeat.
func (h *Heartbeater) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return
	}

	<-h.cron.Stop().Done()
	h.running = false

	observability.FromContext(context.Background()).Info("heartbeat scheduler stopped")
}
