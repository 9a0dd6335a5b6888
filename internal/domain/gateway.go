package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davidbz/ttibu/internal/observability"
)

// AnswerRequest describes one gateway call.
type AnswerRequest struct {
	Session      string
	ProviderCode string
	Model        string
	Credential   string
	Messages     []Message
	Mode         RoutingMode
}

// GatewayService orchestrates streaming calls to providers.
type GatewayService struct {
	registry   ProviderRegistry
	adapter    StreamAdapter
	normalizer StreamNormalizer
	metrics    PipelineMetrics
}

// NewGatewayService creates a new gateway service (DI constructor).
func NewGatewayService(
	registry ProviderRegistry,
	adapter StreamAdapter,
	normalizer StreamNormalizer,
	metrics PipelineMetrics,
) *GatewayService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &GatewayService{
		registry:   registry,
		adapter:    adapter,
		normalizer: normalizer,
		metrics:    metrics,
	}
}

// Answer starts a streaming call and returns its normalized events.
// Events keep upstream order; at most one Done is emitted and an Error ends the sequence.
// The channel closes when the upstream ends or ctx is cancelled.
func (g *GatewayService) Answer(ctx context.Context, req AnswerRequest) (<-chan StreamEvent, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}

	descriptor, err := g.registry.Get(ctx, req.ProviderCode)
	if err != nil {
		return nil, fmt.Errorf("provider lookup failed: %w", err)
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeDirect
	}

	// The relay answers in the OpenAI-compatible format for every provider.
	family := descriptor.Family
	if mode == ModeRelay {
		family = FamilyOpenAI
	}

	ctx = observability.WithProvider(ctx, descriptor.Code)
	ctx = observability.WithModel(ctx, req.Model)
	logger := observability.FromContext(ctx)

	start := time.Now()
	raw, err := g.adapter.StreamChat(ctx, StreamRequest{
		Key:          req.Credential,
		Model:        req.Model,
		ProviderCode: descriptor.Code,
		Mode:         mode,
		Messages:     req.Messages,
	})
	if err != nil {
		g.metrics.RecordUpstreamError(descriptor.Code, err)
		// The adapter already warns with the upstream status and body.
		logger.Debug("upstream stream rejected",
			observability.String("session", req.Session),
			observability.String("mode", string(mode)),
			observability.Error(err))
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	events := make(chan StreamEvent)
	go g.pump(ctx, descriptor.Code, family, raw, events, start)

	return events, nil
}

func (g *GatewayService) pump(
	ctx context.Context,
	provider string,
	family ProviderFamily,
	raw <-chan RawChunk,
	events chan<- StreamEvent,
	start time.Time,
) {
	defer close(events)
	defer func() {
		g.metrics.RecordStreamDuration(provider, time.Since(start))
	}()

	// finished is set after Done, an Error or a cancelled send; the rest of raw is drained.
	finished := false
	for chunk := range raw {
		if finished {
			continue
		}

		if chunk.Err != nil {
			g.metrics.RecordUpstreamError(provider, chunk.Err)
			g.emit(ctx, provider, events, ErrorEvent(chunk.Err))
			finished = true
			continue
		}

		if usage, ok := g.normalizer.ExtractUsage(family, chunk.Data); ok {
			if !g.emit(ctx, provider, events, UsageEvent(usage)) {
				finished = true
				continue
			}
		}

		if delta, ok := g.normalizer.ExtractDelta(family, chunk.Data); ok && delta != "" {
			if !g.emit(ctx, provider, events, DeltaEvent(delta)) {
				finished = true
				continue
			}
		}

		if g.normalizer.IsDone(family, chunk.Data) {
			g.emit(ctx, provider, events, DoneEvent())
			finished = true
		}
	}
}

func (g *GatewayService) emit(ctx context.Context, provider string, events chan<- StreamEvent, event StreamEvent) bool {
	select {
	case events <- event:
		g.metrics.RecordStreamEvent(provider, event.Kind)
		return true
	case <-ctx.Done():
		return false
	}
}
