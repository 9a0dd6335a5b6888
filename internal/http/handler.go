package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/davidbz/ttibu/internal/broadcast"
	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/observability"
)

// SealedKeyHeader carries the sealed provider credential on chat requests.
const SealedKeyHeader = "X-Sealed-Key"

// Handler handles HTTP requests.
type Handler struct {
	chats       *domain.ChatService
	broadcaster *broadcast.Broadcaster
	cfg         *broadcast.Config
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(chats *domain.ChatService, broadcaster *broadcast.Broadcaster, cfg *broadcast.Config) *Handler {
	return &Handler{
		chats:       chats,
		broadcaster: broadcaster,
		cfg:         cfg,
	}
}

type registerKeyRequest struct {
	Provider string `json:"provider"`
	Key      string `json:"key"`
	Mode     string `json:"mode"`
}

type registerKeyResponse struct {
	Provider  string `json:"provider"`
	SealedKey string `json:"sealed_key"`
}

type startChatRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"`
	Mode     string `json:"mode"`
	Context  string `json:"context"`
}

type startChatResponse struct {
	ChatID int64             `json:"chat_id"`
	RoomID int64             `json:"room_id"`
	Status domain.ChatStatus `json:"status"`
}

// HandleRegisterKey tests a provider key and returns it sealed.
func (h *Handler) HandleRegisterKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Provider == "" {
		http.Error(w, "provider is required", http.StatusBadRequest)
		return
	}
	mode, ok := domain.ParseRoutingMode(req.Mode)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown mode %q", req.Mode), http.StatusBadRequest)
		return
	}

	ctx = observability.WithProvider(ctx, req.Provider)

	sealed, err := h.chats.RegisterCredential(ctx, domain.RegisterCredentialRequest{
		ProviderCode: req.Provider,
		Key:          req.Key,
		Mode:         mode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, registerKeyResponse{Provider: req.Provider, SealedKey: sealed})
}

// HandleModels lists the catalog models of a provider.
func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.chats.Models(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, models)
}

// HandleStartChat accepts a question and answers it in the background.
func (h *Handler) HandleStartChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}

	var req startChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Question == "" || req.Model == "" {
		http.Error(w, "question and model are required", http.StatusBadRequest)
		return
	}
	mode, valid := domain.ParseRoutingMode(req.Mode)
	if !valid {
		http.Error(w, fmt.Sprintf("unknown mode %q", req.Mode), http.StatusBadRequest)
		return
	}
	sealedKey := r.Header.Get(SealedKeyHeader)
	if sealedKey == "" {
		http.Error(w, SealedKeyHeader+" header is required", http.StatusUnauthorized)
		return
	}

	ctx = observability.WithRoomID(ctx, roomID)
	ctx = observability.WithModel(ctx, req.Model)

	turn, err := h.chats.StartChat(ctx, domain.StartChatRequest{
		RoomID:        roomID,
		Question:      req.Question,
		Model:         req.Model,
		SealedKey:     sealedKey,
		Mode:          mode,
		ContextPrompt: req.Context,
	})
	if err != nil {
		writeError(w, r.WithContext(ctx), err)
		return
	}

	writeJSON(w, r, http.StatusAccepted, startChatResponse{
		ChatID: turn.ID,
		RoomID: turn.RoomID,
		Status: turn.Status,
	})
}

// HandleGetChat returns one chat turn of a room.
func (h *Handler) HandleGetChat(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}

	turn, err := h.chats.GetChat(r.Context(), roomID, chatID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, turn)
}

// HandleEvents streams the room's session events until the client leaves
// or the subscription is removed.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}

	ctx := observability.WithRoomID(r.Context(), roomID)
	logger := observability.FromContext(ctx)

	sink := broadcast.NewSSESink(w, h.cfg.WriteTimeout)
	if err := sink.Prepare(); err != nil {
		logger.Error("streaming not supported", observability.Error(err))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	key := domain.SessionKey(roomID)
	sub := h.broadcaster.Subscribe(key, sink)
	defer h.broadcaster.Detach(sub)

	h.broadcaster.Publish(key, domain.SessionEvent{
		Type:    domain.SessionInit,
		Payload: domain.InitPayload{RoomID: roomID},
	})

	select {
	case <-sub.Done():
		logger.Debug("subscription ended")
	case <-ctx.Done():
		logger.Debug("client disconnected")
	}
}

// HandleUnsubscribe drops the room's subscriber, if any.
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	h.broadcaster.Unsubscribe(domain.SessionKey(roomID))
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":      "healthy",
		"subscribers": h.broadcaster.Len(),
	})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, fmt.Sprintf("invalid %s %q", name, raw), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCredential), errors.Is(err, domain.ErrCrypto):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrProviderNotFound),
		errors.Is(err, domain.ErrModelNotFound),
		errors.Is(err, domain.ErrChatNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCatalogEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	logger := observability.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", observability.Int("status", status), observability.Error(err))
	} else {
		logger.Info("request rejected", observability.Int("status", status), observability.Error(err))
	}

	writeJSON(w, r, status, map[string]string{
		"error": err.Error(),
		"kind":  domain.ErrorKindLabel(err),
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Already written status, can't change it, just log.
		observability.FromContext(r.Context()).Error("failed to encode response", observability.Error(err))
	}
}
