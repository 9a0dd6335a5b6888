package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDBytes = 16 // OpenTelemetry trace ID size in bytes
	spanIDBytes  = 8  // OpenTelemetry span ID size in bytes
)

const (
	// TraceIDKey holds the OpenTelemetry trace ID.
	TraceIDKey contextKey = "trace_id"

	// SpanIDKey holds the OpenTelemetry span ID.
	SpanIDKey contextKey = "span_id"

	// RequestIDKey holds the unique request identifier.
	RequestIDKey contextKey = "request_id"

	// ProviderKey holds the provider name for this request.
	ProviderKey contextKey = "provider"

	// ModelKey holds the model name for this request.
	ModelKey contextKey = "model"

	// RoomIDKey holds the room (session key) the request belongs to.
	RoomIDKey contextKey = "room_id"

	// ChatIDKey holds the chat turn identifier.
	ChatIDKey contextKey = "chat_id"
)

// WithTraceID injects trace ID into context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithSpanID injects span ID into context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

// WithRequestID injects request ID into context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithProvider injects provider name into context.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ProviderKey, provider)
}

// WithModel injects model name into context.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

// WithRoomID injects the room identifier into context.
func WithRoomID(ctx context.Context, roomID int64) context.Context {
	return context.WithValue(ctx, RoomIDKey, roomID)
}

// WithChatID injects the chat identifier into context.
func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, ChatIDKey, chatID)
}

// GetTraceID extracts trace ID from context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetSpanID extracts span ID from context.
func GetSpanID(ctx context.Context) string {
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok {
		return spanID
	}
	return ""
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetProvider extracts provider name from context.
func GetProvider(ctx context.Context) string {
	if provider, ok := ctx.Value(ProviderKey).(string); ok {
		return provider
	}
	return ""
}

// GetModel extracts model name from context.
func GetModel(ctx context.Context) string {
	if model, ok := ctx.Value(ModelKey).(string); ok {
		return model
	}
	return ""
}

// GetRoomID extracts the room identifier from context.
func GetRoomID(ctx context.Context) (int64, bool) {
	roomID, ok := ctx.Value(RoomIDKey).(int64)
	return roomID, ok
}

// GetChatID extracts the chat identifier from context.
func GetChatID(ctx context.Context) (int64, bool) {
	chatID, ok := ctx.Value(ChatIDKey).(int64)
	return chatID, ok
}

// Detach returns a background context carrying the logging values of ctx.
// Work scheduled past the end of a request keeps its trace fields but not its cancellation.
func Detach(ctx context.Context) context.Context {
	return Inherit(context.Background(), ctx)
}

// Inherit copies the logging values of src onto dst.
func Inherit(dst, src context.Context) context.Context {
	if v := GetTraceID(src); v != "" {
		dst = WithTraceID(dst, v)
	}
	if v := GetSpanID(src); v != "" {
		dst = WithSpanID(dst, v)
	}
	if v := GetRequestID(src); v != "" {
		dst = WithRequestID(dst, v)
	}
	if v := GetProvider(src); v != "" {
		dst = WithProvider(dst, v)
	}
	if v := GetModel(src); v != "" {
		dst = WithModel(dst, v)
	}
	if v, ok := GetRoomID(src); ok {
		dst = WithRoomID(dst, v)
	}
	if v, ok := GetChatID(src); ok {
		dst = WithChatID(dst, v)
	}
	return dst
}

// GenerateTraceID generates an OpenTelemetry-compatible trace ID (32 hex chars).
func GenerateTraceID() string {
	bytes := make([]byte, traceIDBytes)
	if _, err := rand.Read(bytes); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(bytes)
}

// GenerateSpanID generates an OpenTelemetry-compatible span ID (16 hex chars).
func GenerateSpanID() string {
	bytes := make([]byte, spanIDBytes)
	if _, err := rand.Read(bytes); err != nil {
		return uuid.New().String()[:16]
	}
	return hex.EncodeToString(bytes)
}

// GenerateRequestID generates a unique request identifier (UUID).
func GenerateRequestID() string {
	return uuid.New().String()
}
