package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/davidbz/ttibu/internal/observability"
)

const (
	defaultMaxAttempts   = 3
	defaultRetryDelay    = time.Second
	defaultContextLength = 2000

	attemptSuccess = "success"
	attemptFailure = "failure"
	attemptSkipped = "skipped"
)

// SendContext carries everything a background answer needs besides the chat id.
type SendContext struct {
	RoomID        int64
	ProviderCode  string
	Model         string
	SealedKey     string
	Mode          RoutingMode
	ContextPrompt string
}

// ProcessorOptions tunes the retry loop.
// MaxElapsed caps the whole loop; zero leaves MaxAttempts as the only bound.
type ProcessorOptions struct {
	MaxAttempts   uint
	RetryDelay    time.Duration
	MaxElapsed    time.Duration
	ContextLength int
}

// ChatProcessor generates, persists and publishes one answer outside the request cycle.
type ChatProcessor struct {
	gateway    ChatGateway
	store      ChatStore
	sealer     CredentialSealer
	summarizer Summarizer
	publisher  EventPublisher
	metrics    PipelineMetrics
	opts       ProcessorOptions
}

// NewChatProcessor creates a new chat processor (DI constructor).
func NewChatProcessor(
	gateway ChatGateway,
	store ChatStore,
	sealer CredentialSealer,
	summarizer Summarizer,
	publisher EventPublisher,
	metrics PipelineMetrics,
	opts ProcessorOptions,
) *ChatProcessor {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.MaxElapsed < 0 {
		opts.MaxElapsed = 0
	}
	if opts.ContextLength <= 0 {
		opts.ContextLength = defaultContextLength
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ChatProcessor{
		gateway:    gateway,
		store:      store,
		sealer:     sealer,
		summarizer: summarizer,
		publisher:  publisher,
		metrics:    metrics,
		opts:       opts,
	}
}

// Process answers chatID with bounded retry. It never returns an error and never panics:
// exhaustion is logged once and reported to the room as an ERROR event, leaving the turn as persisted.
func (p *ChatProcessor) Process(ctx context.Context, chatID int64, send SendContext) {
	ctx = observability.WithRoomID(ctx, send.RoomID)
	ctx = observability.WithChatID(ctx, chatID)
	ctx = observability.WithProvider(ctx, send.ProviderCode)
	ctx = observability.WithModel(ctx, send.Model)
	logger := observability.FromContext(ctx)

	sessionKey := SessionKey(send.RoomID)

	attempt := 0
	operation := func() (*ChatTurn, error) {
		attempt++
		turn, err := p.attempt(ctx, chatID, send)
		switch {
		case err != nil:
			p.metrics.RecordAttempt(attemptFailure)
			return nil, err
		case turn == nil:
			p.metrics.RecordAttempt(attemptSkipped)
		default:
			p.metrics.RecordAttempt(attemptSuccess)
		}
		return turn, nil
	}

	turn, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.opts.RetryDelay)),
		backoff.WithMaxTries(p.opts.MaxAttempts),
		// Retry otherwise stops after backoff.DefaultMaxElapsedTime.
		backoff.WithMaxElapsedTime(p.opts.MaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.metrics.RecordRetry()
			logger.Warn("chat attempt failed, retrying",
				observability.Int("attempt", attempt),
				observability.Duration("retry_in", next),
				observability.Error(err))
		}),
	)
	if err != nil {
		logger.Error("chat processing abandoned",
			observability.Int("attempts", attempt),
			observability.Error(err))
		p.publisher.Publish(sessionKey, SessionEvent{
			Type:    SessionError,
			Payload: ErrorPayload{ChatID: chatID, Error: err.Error()},
		})
		return
	}

	if turn == nil {
		return
	}

	p.summarize(ctx, sessionKey, turn)
}

// attempt runs one full answer round. A nil turn with nil error means the turn no longer awaits an answer.
func (p *ChatProcessor) attempt(ctx context.Context, chatID int64, send SendContext) (*ChatTurn, error) {
	logger := observability.FromContext(ctx)

	turn, err := p.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	if turn.Status != StatusQuestion {
		logger.Info("chat already answered, skipping",
			observability.String("status", string(turn.Status)))
		return nil, nil
	}

	credential, err := p.sealer.Decrypt(send.SealedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential: %w", err)
	}

	events, err := p.gateway.Answer(ctx, AnswerRequest{
		Session:      SessionKey(send.RoomID),
		ProviderCode: send.ProviderCode,
		Model:        send.Model,
		Credential:   credential,
		Messages:     p.buildMessages(send.ContextPrompt, turn.Question),
		Mode:         send.Mode,
	})
	if err != nil {
		return nil, err
	}

	sessionKey := SessionKey(send.RoomID)
	var (
		answer strings.Builder
		usage  Usage
	)
	for event := range events {
		switch event.Kind {
		case EventDelta:
			answer.WriteString(event.Delta)
			p.publisher.Publish(sessionKey, SessionEvent{
				Type:    SessionDelta,
				Payload: DeltaPayload{ChatID: chatID, Delta: event.Delta},
			})
		case EventUsage:
			usage = event.Usage
		case EventError:
			return nil, event.Err
		case EventDone:
			answeredAt := time.Now().UTC()
			if err := p.store.SaveAnswer(ctx, chatID, answer.String(), usage, answeredAt); err != nil {
				return nil, fmt.Errorf("failed to save answer: %w", err)
			}

			turn.Answer = answer.String()
			turn.Usage = usage
			turn.Status = StatusAnswer
			turn.AnsweredAt = &answeredAt

			logger.Info("chat answered",
				observability.Int("answer_length", answer.Len()),
				observability.Int("total_tokens", usage.TotalTokens))

			p.publisher.Publish(sessionKey, SessionEvent{
				Type: SessionAnswered,
				Payload: AnsweredPayload{
					ChatID:     chatID,
					Answer:     turn.Answer,
					AnsweredAt: answeredAt,
					Usage:      usage,
				},
			})
			return turn, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, backoff.Permanent(err)
	}
	return nil, ErrStreamTruncated
}

func (p *ChatProcessor) buildMessages(contextPrompt, question string) []Message {
	messages := make([]Message, 0, 2)
	if prompt := strings.TrimSpace(contextPrompt); prompt != "" {
		messages = append(messages, Message{Role: "system", Content: lastRunes(prompt, p.opts.ContextLength)})
	}
	return append(messages, Message{Role: "user", Content: question})
}

// summarize runs the post-answer calls. Failures here never touch the persisted answer.
func (p *ChatProcessor) summarize(ctx context.Context, sessionKey string, turn *ChatTurn) {
	logger := observability.FromContext(ctx)

	result, err := p.summarizer.Summarize(ctx, turn.Answer)
	if err != nil || result == nil {
		logger.Warn("summarization failed, storing empty summary", observability.Error(err))
		result = &SummaryResult{Summary: nil, Keywords: []string{}}
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}

	if err := p.store.SaveSummary(ctx, turn.ID, *result); err != nil {
		logger.Error("failed to save summary", observability.Error(err))
	} else {
		p.publisher.Publish(sessionKey, SessionEvent{
			Type: SessionSummaryKeywords,
			Payload: SummaryKeywordsPayload{
				RoomID:   turn.RoomID,
				ChatID:   turn.ID,
				Summary:  result.Summary,
				Keywords: result.Keywords,
			},
		})
	}

	title, err := p.summarizer.Title(ctx, turn.Answer)
	if err != nil {
		logger.Warn("room title generation failed", observability.Error(err))
		return
	}
	if title == "" {
		return
	}
	if err := p.store.SaveRoomTitle(ctx, turn.RoomID, title); err != nil {
		logger.Error("failed to save room title", observability.Error(err))
		return
	}
	p.publisher.Publish(sessionKey, SessionEvent{
		Type:    SessionRoomTitle,
		Payload: RoomTitlePayload{RoomID: turn.RoomID, Title: title},
	})
}

func lastRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
