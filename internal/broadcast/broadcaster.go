// Package broadcast delivers session events to at most one live subscriber per session key.
package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/observability"
)

const (
	dropNoSubscriber = "no_subscriber"
	dropSendFailed   = "send_failed"

	removedReplaced = "replaced"
	removedExpired  = "expired"
	removedFailed   = "send failed"
	removedClient   = "unsubscribed"
)

// ErrSubscriptionClosed is returned when sending on a removed subscription.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Config holds broadcaster settings.
type Config struct {
	Lifetime          time.Duration `env:"SUBSCRIBER_LIFETIME"      envDefault:"30m"`
	WriteTimeout      time.Duration `env:"SUBSCRIBER_WRITE_TIMEOUT" envDefault:"10s"`
	HeartbeatSchedule string        `env:"HEARTBEAT_SCHEDULE"       envDefault:"@every 15s"`
}

// Sink is the transport end of a subscription.
type Sink interface {
	Send(event domain.SessionEvent) error
}

// Metrics receives broadcaster counters.
type Metrics interface {
	SetSubscribers(n int)
	RecordPublished(eventType domain.SessionEventType)
	RecordDropped(reason string)
}

type nopMetrics struct{}

func (nopMetrics) SetSubscribers(int)                      {}
func (nopMetrics) RecordPublished(domain.SessionEventType) {}
func (nopMetrics) RecordDropped(string)                    {}

// Subscription is the handle of one subscriber.
// Sends on a handle are serialized; once closed the sink is never written again.
type Subscription struct {
	key  string
	sink Sink

	mu     sync.Mutex
	closed bool
	timer  *time.Timer
	done   chan struct{}
	once   sync.Once
}

// Key returns the session key the handle is registered under.
func (s *Subscription) Key() string { return s.key }

// Done is closed when the handle leaves the registry.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) send(event domain.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSubscriptionClosed
	}
	if err := s.sink.Send(event); err != nil {
		// A failed sink is never written again, even before the registry drops it.
		s.closed = true
		return err
	}
	return nil
}

// close waits for an in-flight send; the sink is unused afterwards.
func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.once.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		close(s.done)
	})
}

// Broadcaster implements domain.EventPublisher.
type Broadcaster struct {
	lifetime time.Duration
	metrics  Metrics

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

// NewBroadcaster creates a new broadcaster (DI constructor).
func NewBroadcaster(cfg *Config, metrics Metrics) *Broadcaster {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Broadcaster{
		lifetime: cfg.Lifetime,
		metrics:  metrics,
		subs:     make(map[string]*Subscription),
	}
}

// Subscribe registers sink under key, replacing and closing any previous handle.
func (b *Broadcaster) Subscribe(key string, sink Sink) *Subscription {
	sub := &Subscription{
		key:  key,
		sink: sink,
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close()
		return sub
	}
	prev := b.subs[key]
	b.subs[key] = sub
	count := len(b.subs)
	if b.lifetime > 0 {
		sub.timer = time.AfterFunc(b.lifetime, func() {
			b.remove(sub, removedExpired)
		})
	}
	b.mu.Unlock()

	b.metrics.SetSubscribers(count)

	logger := observability.FromContext(context.Background())
	if prev != nil {
		prev.close()
		logger.Info("subscriber removed",
			observability.String("session", key),
			observability.String("reason", removedReplaced))
	}
	logger.Info("subscriber connected",
		observability.String("session", key),
		observability.Duration("lifetime", b.lifetime))

	return sub
}

// Publish delivers event to the current subscriber of key.
// A missing subscriber is not an error; a failed send removes the handle before Publish returns.
func (b *Broadcaster) Publish(key string, event domain.SessionEvent) {
	b.mu.Lock()
	sub := b.subs[key]
	b.mu.Unlock()

	logger := observability.FromContext(context.Background())

	if sub == nil {
		b.metrics.RecordDropped(dropNoSubscriber)
		logger.Warn("no active subscriber, event dropped",
			observability.String("session", key),
			observability.String("event", string(event.Type)))
		return
	}

	if err := sub.send(event); err != nil {
		if errors.Is(err, ErrSubscriptionClosed) {
			b.metrics.RecordDropped(dropNoSubscriber)
			return
		}
		b.metrics.RecordDropped(dropSendFailed)
		logger.Warn("failed to send event, removing subscriber",
			observability.String("session", key),
			observability.String("event", string(event.Type)),
			observability.Error(err))
		b.remove(sub, removedFailed)
		return
	}

	b.metrics.RecordPublished(event.Type)
	logger.Debug("event sent",
		observability.String("session", key),
		observability.String("event", string(event.Type)))
}

// Unsubscribe removes the handle of key. Absent keys are ignored.
func (b *Broadcaster) Unsubscribe(key string) {
	b.mu.Lock()
	sub := b.subs[key]
	b.mu.Unlock()

	if sub != nil {
		b.remove(sub, removedClient)
	}
}

// Detach removes sub only while it is still the current handle of its key.
func (b *Broadcaster) Detach(sub *Subscription) {
	b.remove(sub, removedClient)
}

// Heartbeat sends a HEARTBEAT event to every subscriber; failing ones are removed.
func (b *Broadcaster) Heartbeat() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	event := domain.SessionEvent{Type: domain.SessionHeartbeat, Payload: "ping"}
	for _, sub := range subs {
		if err := sub.send(event); err != nil {
			if errors.Is(err, ErrSubscriptionClosed) {
				continue
			}
			observability.FromContext(context.Background()).Warn("heartbeat failed, removing subscriber",
				observability.String("session", sub.key),
				observability.Error(err))
			b.remove(sub, removedFailed)
		}
	}
}

// Len reports the number of registered subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close removes every subscriber and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[string]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	b.metrics.SetSubscribers(0)

	observability.FromContext(context.Background()).Info("broadcaster closed",
		observability.Int("subscribers", len(subs)))
}

// remove drops sub from the registry if it is still current and closes it.
func (b *Broadcaster) remove(sub *Subscription, reason string) {
	b.mu.Lock()
	current := b.subs[sub.key] == sub
	if current {
		delete(b.subs, sub.key)
	}
	count := len(b.subs)
	b.mu.Unlock()

	sub.close()

	if current {
		b.metrics.SetSubscribers(count)
		observability.FromContext(context.Background()).Info("subscriber removed",
			observability.String("session", sub.key),
			observability.String("reason", reason))
	}
}
