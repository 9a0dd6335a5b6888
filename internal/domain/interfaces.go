package domain

import (
	"context"
	"time"
)

// StreamAdapter talks to upstream providers.
type StreamAdapter interface {
	// TestCredential validates a key with a minimal one-token round trip.
	TestCredential(ctx context.Context, check CredentialCheck) error

	// StreamChat starts a streaming chat call and returns its raw chunks.
	// Rejections at connection time are returned as the error, before any chunk.
	StreamChat(ctx context.Context, req StreamRequest) (<-chan RawChunk, error)
}

// CredentialCheck describes a credential test call.
type CredentialCheck struct {
	Key          string
	Model        string
	ProviderCode string
	Mode         RoutingMode
}

// StreamRequest describes one streaming chat call.
type StreamRequest struct {
	Key          string
	Model        string
	ProviderCode string
	Mode         RoutingMode
	Messages     []Message
}

// StreamNormalizer turns raw upstream chunks into delta, completion and usage signals.
type StreamNormalizer interface {
	ExtractDelta(family ProviderFamily, chunk string) (string, bool)
	IsDone(family ProviderFamily, chunk string) bool
	ExtractUsage(family ProviderFamily, chunk string) (Usage, bool)
}

// ChatGateway produces the normalized event sequence of one answer.
type ChatGateway interface {
	Answer(ctx context.Context, req AnswerRequest) (<-chan StreamEvent, error)
}

// ProviderRegistry manages the static provider descriptors.
type ProviderRegistry interface {
	// Get retrieves the descriptor for a provider code.
	Get(ctx context.Context, providerCode string) (ProviderDescriptor, error)

	// List returns all known provider codes.
	List(ctx context.Context) ([]string, error)
}

// ModelCatalog lists the models available per provider.
type ModelCatalog interface {
	// ModelsFor returns the ordered models of a provider.
	ModelsFor(ctx context.Context, providerCode string) ([]ModelEntry, error)

	// ExistsProvider reports whether the catalog knows the provider.
	ExistsProvider(ctx context.Context, providerCode string) bool

	// ResolveModel maps a bare model code or a "provider/model" reference
	// to the serving provider and the model code that provider expects.
	ResolveModel(ctx context.Context, modelRef string) (providerCode, modelCode string, err error)
}

// Router determines which provider to use for a request.
type Router interface {
	// Route selects a provider based on request criteria.
	Route(ctx context.Context, req *RouteRequest) (RouteResult, error)
}

// RouteRequest contains criteria for provider selection.
type RouteRequest struct {
	Model string
}

// RouteResult names the provider to call and the model code it is sent.
type RouteResult struct {
	ProviderCode string
	Model        string
}

// CredentialSealer encrypts and decrypts caller credentials.
type CredentialSealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(sealed string) (string, error)
}

// ChatStore persists chat turns. Every update is a single atomic write keyed by chat id.
type ChatStore interface {
	// CreateChat inserts a new turn and assigns its ID.
	CreateChat(ctx context.Context, turn *ChatTurn) error

	// GetChat loads a turn, returning ErrChatNotFound when absent.
	GetChat(ctx context.Context, chatID int64) (*ChatTurn, error)

	// SaveAnswer stores the final answer and moves the turn to ANSWER.
	SaveAnswer(ctx context.Context, chatID int64, answer string, usage Usage, answeredAt time.Time) error

	// SaveSummary stores summary and keywords and moves the turn to SUMMARY_KEYWORDS.
	SaveSummary(ctx context.Context, chatID int64, result SummaryResult) error

	// SaveRoomTitle stores the generated room title.
	SaveRoomTitle(ctx context.Context, roomID int64, title string) error
}

// Summarizer produces the post-answer summaries.
type Summarizer interface {
	// Summarize returns a long summary and keywords for text.
	Summarize(ctx context.Context, text string) (*SummaryResult, error)

	// Title returns a short title for text.
	Title(ctx context.Context, text string) (string, error)
}

// EventPublisher delivers session events. Publishing never fails from the caller's view.
type EventPublisher interface {
	Publish(sessionKey string, event SessionEvent)
}

// TaskScheduler runs work outside the request cycle.
type TaskScheduler interface {
	// Submit queues task without blocking, returning ErrQueueFull when saturated.
	Submit(task func(ctx context.Context)) error
}

// PipelineMetrics receives gateway and processor measurements.
type PipelineMetrics interface {
	RecordStreamEvent(provider string, kind StreamEventKind)
	RecordUpstreamError(provider string, err error)
	RecordAttempt(outcome string)
	RecordRetry()
	RecordStreamDuration(provider string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordStreamEvent(string, StreamEventKind)  {}
func (nopMetrics) RecordUpstreamError(string, error)          {}
func (nopMetrics) RecordAttempt(string)                       {}
func (nopMetrics) RecordRetry()                               {}
func (nopMetrics) RecordStreamDuration(string, time.Duration) {}

// SessionKey renders a room id as a broadcaster key.
func SessionKey(roomID int64) string {
	return formatInt(roomID)
}
