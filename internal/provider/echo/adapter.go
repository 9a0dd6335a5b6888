// Package echo provides an offline stream adapter that echoes back input messages.
// It implements domain.StreamAdapter without external API calls, emitting raw chunks
// in the wire format of the requested provider family so the whole pipeline can run locally.
package echo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/observability"
)

const (
	rejectedKey = "invalid"
	chunkDelay  = 10 * time.Millisecond
)

// Adapter implements domain.StreamAdapter for local development and tests.
type Adapter struct {
	registry domain.ProviderRegistry
	delay    time.Duration
}

// NewAdapter creates a new echo adapter.
// The key "invalid" is rejected as a bad credential; every other key is accepted.
func NewAdapter(registry domain.ProviderRegistry) *Adapter {
	return &Adapter{
		registry: registry,
		delay:    chunkDelay,
	}
}

// WithDelay sets the pause between chunks.
func (a *Adapter) WithDelay(d time.Duration) *Adapter {
	a.delay = d
	return a
}

// TestCredential accepts any key except the reserved rejected one.
func (a *Adapter) TestCredential(ctx context.Context, check domain.CredentialCheck) error {
	descriptor, err := a.registry.Get(ctx, check.ProviderCode)
	if err != nil {
		return err
	}
	return checkKey(descriptor.Code, check.Key)
}

// StreamChat streams the echoed conversation word by word.
func (a *Adapter) StreamChat(ctx context.Context, req domain.StreamRequest) (<-chan domain.RawChunk, error) {
	descriptor, err := a.registry.Get(ctx, req.ProviderCode)
	if err != nil {
		return nil, err
	}
	if err := checkKey(descriptor.Code, req.Key); err != nil {
		return nil, err
	}

	family := descriptor.Family
	if req.Mode == domain.ModeRelay {
		family = domain.FamilyOpenAI
	}

	logger := observability.FromContext(ctx)
	logger.Debug("streaming echo request",
		observability.String("family", family.String()))

	content := buildEchoContent(req.Messages)
	frames := encodeFrames(family, strings.Fields(content), countTokens(content))

	chunks := make(chan domain.RawChunk)

	go func() {
		defer close(chunks)

		for i, frame := range frames {
			if i > 0 && a.delay > 0 {
				select {
				case <-time.After(a.delay):
				case <-ctx.Done():
					return
				}
			}

			select {
			case chunks <- domain.RawChunk{Data: frame}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}

func checkKey(provider, key string) error {
	switch key {
	case "":
		return &domain.UpstreamError{Kind: domain.ErrInvalidCredential, Provider: provider, Cause: errors.New("missing key")}
	case rejectedKey:
		return &domain.UpstreamError{Kind: domain.ErrInvalidCredential, Provider: provider, StatusCode: 401, Body: "echo: key rejected"}
	default:
		return nil
	}
}

// encodeFrames renders the words as SSE data lines of the given family, followed by its end marker.
func encodeFrames(family domain.ProviderFamily, words []string, tokens int) []string {
	frames := make([]string, 0, len(words)+2)

	for i, word := range words {
		delta := word
		if i < len(words)-1 {
			delta += " "
		}

		switch family {
		case domain.FamilyOpenAI:
			frames = append(frames, frame(map[string]any{
				"choices": []any{map[string]any{"delta": map[string]any{"content": delta}}},
			}))
		case domain.FamilyAnthropic:
			frames = append(frames, frame(map[string]any{
				"type":  "content_block_delta",
				"delta": map[string]any{"type": "text_delta", "text": delta},
			}))
		case domain.FamilyGemini:
			frames = append(frames, frame(map[string]any{
				"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": delta}}}}},
			}))
		}
	}

	switch family {
	case domain.FamilyOpenAI:
		frames = append(frames,
			frame(map[string]any{
				"choices": []any{},
				"usage": map[string]any{
					"prompt_tokens":     tokens,
					"completion_tokens": tokens,
					"total_tokens":      2 * tokens,
				},
			}),
			"data: [DONE]",
		)
	case domain.FamilyAnthropic:
		frames = append(frames, frame(map[string]any{"type": "message_stop"}))
	case domain.FamilyGemini:
		frames = append(frames, frame(map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": ""}}},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     tokens,
				"candidatesTokenCount": tokens,
				"totalTokenCount":      2 * tokens,
			},
		}))
	}

	return frames
}

func frame(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return "data: " + string(raw)
}

// buildEchoContent constructs the echo response from request messages.
func buildEchoContent(messages []domain.Message) string {
	if len(messages) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, msg := range messages {
		builder.WriteString(fmt.Sprintf("[%s]: %s\n", msg.Role, msg.Content))
	}
	return builder.String()
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}
