// Package worker runs background tasks on a bounded, elastic pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/observability"
)

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("worker pool closed")

// Config sizes the pool.
//   - MinWorkers: workers started up front and kept for the pool lifetime
//   - MaxWorkers: upper bound; extra workers start only when the queue is full
//   - QueueSize: tasks waiting for a worker before Submit rejects
//   - IdleTimeout: how long an extra worker waits for work before exiting
type Config struct {
	MinWorkers  int           `env:"WORKER_MIN"          envDefault:"5"`
	MaxWorkers  int           `env:"WORKER_MAX"          envDefault:"20"`
	QueueSize   int           `env:"WORKER_QUEUE_SIZE"   envDefault:"100"`
	IdleTimeout time.Duration `env:"WORKER_IDLE_TIMEOUT" envDefault:"60s"`
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers int
	Queued  int
}

// Pool implements domain.TaskScheduler.
type Pool struct {
	cfg    Config
	tasks  chan func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	workers int
	wg      sync.WaitGroup
}

// NewPool creates a pool and starts its minimum workers.
func NewPool(cfg *Config) *Pool {
	c := *cfg
	if c.MinWorkers < 1 {
		c.MinWorkers = 1
	}
	if c.MaxWorkers < c.MinWorkers {
		c.MaxWorkers = c.MinWorkers
	}
	if c.QueueSize < 0 {
		c.QueueSize = 0
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:    c,
		tasks:  make(chan func(ctx context.Context), c.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	p.mu.Lock()
	for range c.MinWorkers {
		p.spawn(nil, true)
	}
	p.mu.Unlock()

	observability.FromContext(ctx).Info("worker pool started",
		observability.Int("min_workers", c.MinWorkers),
		observability.Int("max_workers", c.MaxWorkers),
		observability.Int("queue_size", c.QueueSize))

	return p
}

// Submit queues task without blocking. When the queue is full an extra worker is
// started up to MaxWorkers; beyond that the task is rejected with domain.ErrQueueFull.
// Tasks receive a context that is cancelled only when Shutdown gives up waiting.
func (p *Pool) Submit(task func(ctx context.Context)) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
	}

	if p.workers < p.cfg.MaxWorkers {
		p.spawn(task, false)
		return nil
	}

	return fmt.Errorf("%d workers busy, %d queued: %w", p.workers, len(p.tasks), domain.ErrQueueFull)
}

// Stats reports the current worker count and queue depth.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{Workers: p.workers, Queued: len(p.tasks)}
}

// Shutdown stops intake and waits for queued and running tasks.
// If ctx expires first, running tasks see their context cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

// spawn starts a worker. Callers hold p.mu.
func (p *Pool) spawn(first func(ctx context.Context), core bool) {
	p.workers++
	p.wg.Add(1)
	go p.work(first, core)
}

func (p *Pool) work(first func(ctx context.Context), core bool) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		p.workers--
		p.mu.Unlock()
	}()

	if first != nil {
		p.run(first)
	}

	if core {
		for task := range p.tasks {
			p.run(task)
		}
		return
	}

	idle := time.NewTimer(p.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(task)
			idle.Reset(p.cfg.IdleTimeout)
		case <-idle.C:
			return
		}
	}
}

// run executes one task; a panicking task never takes its worker down.
func (p *Pool) run(task func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			observability.FromContext(p.ctx).Error("background task panicked",
				observability.String("panic", fmt.Sprint(r)))
		}
	}()

	task(p.ctx)
}
