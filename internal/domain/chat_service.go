package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/ttibu/internal/observability"
)

// TurnProcessor answers a persisted chat turn.
type TurnProcessor interface {
	Process(ctx context.Context, chatID int64, send SendContext)
}

// StartChatRequest is the inbound chat request.
type StartChatRequest struct {
	RoomID        int64
	Question      string
	Model         string
	SealedKey     string
	Mode          RoutingMode
	ContextPrompt string
}

// RegisterCredentialRequest asks to validate and seal a provider key.
type RegisterCredentialRequest struct {
	ProviderCode string
	Key          string
	Mode         RoutingMode
}

// ChatService is the synchronous front of the pipeline.
type ChatService struct {
	router    Router
	catalog   ModelCatalog
	registry  ProviderRegistry
	adapter   StreamAdapter
	sealer    CredentialSealer
	store     ChatStore
	publisher EventPublisher
	scheduler TaskScheduler
	processor TurnProcessor
}

// NewChatService creates a new chat service (DI constructor).
func NewChatService(
	router Router,
	catalog ModelCatalog,
	registry ProviderRegistry,
	adapter StreamAdapter,
	sealer CredentialSealer,
	store ChatStore,
	publisher EventPublisher,
	scheduler TaskScheduler,
	processor TurnProcessor,
) *ChatService {
	return &ChatService{
		router:    router,
		catalog:   catalog,
		registry:  registry,
		adapter:   adapter,
		sealer:    sealer,
		store:     store,
		publisher: publisher,
		scheduler: scheduler,
		processor: processor,
	}
}

// StartChat persists a QUESTION turn, announces it and schedules the answer.
// It returns as soon as the task is queued; the answer arrives as session events.
func (s *ChatService) StartChat(ctx context.Context, req StartChatRequest) (*ChatTurn, error) {
	if req.RoomID <= 0 {
		return nil, fmt.Errorf("%w: room id must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question cannot be empty", ErrInvalidInput)
	}
	if req.Model == "" {
		return nil, fmt.Errorf("%w: model cannot be empty", ErrInvalidInput)
	}

	route, err := s.router.Route(ctx, &RouteRequest{Model: req.Model})
	if err != nil {
		return nil, fmt.Errorf("provider routing failed: %w", err)
	}

	if _, err := s.sealer.Decrypt(req.SealedKey); err != nil {
		return nil, fmt.Errorf("credential rejected: %w", err)
	}

	ctx = observability.WithRoomID(ctx, req.RoomID)
	ctx = observability.WithProvider(ctx, route.ProviderCode)
	ctx = observability.WithModel(ctx, route.Model)
	logger := observability.FromContext(ctx)

	now := time.Now().UTC()
	turn := &ChatTurn{
		RoomID:       req.RoomID,
		Question:     req.Question,
		Status:       StatusQuestion,
		Keywords:     []string{},
		Model:        route.Model,
		ProviderCode: route.ProviderCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateChat(ctx, turn); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	ctx = observability.WithChatID(ctx, turn.ID)

	s.publisher.Publish(SessionKey(req.RoomID), SessionEvent{
		Type: SessionCreated,
		Payload: CreatedPayload{
			ChatID:   turn.ID,
			RoomID:   turn.RoomID,
			Question: turn.Question,
			Model:    turn.Model,
		},
	})

	send := SendContext{
		RoomID:        req.RoomID,
		ProviderCode:  route.ProviderCode,
		Model:         route.Model,
		SealedKey:     req.SealedKey,
		Mode:          req.Mode,
		ContextPrompt: req.ContextPrompt,
	}
	chatID := turn.ID
	err = s.scheduler.Submit(func(taskCtx context.Context) {
		s.processor.Process(observability.Inherit(taskCtx, ctx), chatID, send)
	})
	if err != nil {
		logger.Warn("chat task rejected", observability.Error(err))
		return nil, fmt.Errorf("failed to schedule chat: %w", err)
	}

	logger.Info("chat scheduled")
	return turn, nil
}

// GetChat returns a turn that belongs to roomID.
func (s *ChatService) GetChat(ctx context.Context, roomID, chatID int64) (*ChatTurn, error) {
	turn, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if turn.RoomID != roomID {
		return nil, fmt.Errorf("chat %d in room %d: %w", chatID, roomID, ErrChatNotFound)
	}
	return turn, nil
}

// RegisterCredential tests a caller key against the provider's first catalog model and seals it.
func (s *ChatService) RegisterCredential(ctx context.Context, req RegisterCredentialRequest) (string, error) {
	if strings.TrimSpace(req.Key) == "" {
		return "", fmt.Errorf("%w: key cannot be empty", ErrInvalidInput)
	}

	descriptor, err := s.registry.Get(ctx, req.ProviderCode)
	if err != nil {
		return "", fmt.Errorf("provider lookup failed: %w", err)
	}

	models, err := s.catalog.ModelsFor(ctx, descriptor.Code)
	if err != nil && !errors.Is(err, ErrProviderNotFound) {
		return "", fmt.Errorf("failed to list models: %w", err)
	}
	if len(models) == 0 {
		return "", fmt.Errorf("provider %q: %w", descriptor.Code, ErrCatalogEmpty)
	}

	ctx = observability.WithProvider(ctx, descriptor.Code)
	ctx = observability.WithModel(ctx, models[0].Code)

	err = s.adapter.TestCredential(ctx, CredentialCheck{
		Key:          req.Key,
		Model:        models[0].Code,
		ProviderCode: descriptor.Code,
		Mode:         req.Mode,
	})
	if err != nil {
		observability.FromContext(ctx).Info("credential test failed",
			observability.String("kind", ErrorKindLabel(err)))
		return "", fmt.Errorf("credential test failed: %w", err)
	}

	sealed, err := s.sealer.Encrypt(req.Key)
	if err != nil {
		return "", fmt.Errorf("failed to seal credential: %w", err)
	}
	return sealed, nil
}

// Models returns the catalog models of a provider.
func (s *ChatService) Models(ctx context.Context, providerCode string) ([]ModelEntry, error) {
	if !s.catalog.ExistsProvider(ctx, providerCode) {
		return nil, fmt.Errorf("provider %q: %w", providerCode, ErrProviderNotFound)
	}
	return s.catalog.ModelsFor(ctx, providerCode)
}
