// Package upstream speaks the wire protocols of the supported LLM providers.
// It shapes requests per provider family, performs the streaming HTTP call
// and hands back raw chunks; decoding the chunks is left to the stream package.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/observability"
	"github.com/davidbz/ttibu/internal/stream"
)

const pingPrompt = "ping"

// Adapter implements domain.StreamAdapter over plain HTTP.
type Adapter struct {
	cfg      *Config
	registry domain.ProviderRegistry
	client   *http.Client
}

// NewAdapter creates a new upstream adapter (DI constructor).
func NewAdapter(cfg *Config, registry domain.ProviderRegistry) *Adapter {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.HeaderTimeout

	return &Adapter{
		cfg:      cfg,
		registry: registry,
		client:   &http.Client{Transport: transport},
	}
}

// call is the provider-neutral shape of one upstream request.
type call struct {
	key         string
	model       string
	messages    []domain.Message
	stream      bool
	temperature float64
	maxTokens   int
}

// TestCredential validates a key with a one-token round trip.
func (a *Adapter) TestCredential(ctx context.Context, check domain.CredentialCheck) error {
	descriptor, err := a.registry.Get(ctx, check.ProviderCode)
	if err != nil {
		return err
	}

	if a.cfg.TestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.TestTimeout)
		defer cancel()
	}

	req, err := a.buildRequest(ctx, descriptor, check.Mode, call{
		key:         check.Key,
		model:       check.Model,
		messages:    []domain.Message{{Role: "user", Content: pingPrompt}},
		stream:      false,
		temperature: 0,
		maxTokens:   1,
	})
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return transportError(descriptor.Code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return a.statusError(ctx, descriptor.Code, check.Model, resp)
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	observability.FromContext(ctx).Debug("credential test passed",
		observability.String("provider", descriptor.Code),
		observability.String("model", check.Model))

	return nil
}

// StreamChat opens a streaming call. Connection-time rejections are returned directly;
// a failure after streaming began is delivered as the last chunk.
func (a *Adapter) StreamChat(ctx context.Context, streamReq domain.StreamRequest) (<-chan domain.RawChunk, error) {
	descriptor, err := a.registry.Get(ctx, streamReq.ProviderCode)
	if err != nil {
		return nil, err
	}

	maxTokens := 0
	if descriptor.Family == domain.FamilyAnthropic {
		maxTokens = a.cfg.AnthropicMaxTokens
	}

	req, err := a.buildRequest(ctx, descriptor, streamReq.Mode, call{
		key:         streamReq.Key,
		model:       streamReq.Model,
		messages:    streamReq.Messages,
		stream:      true,
		temperature: a.cfg.Temperature,
		maxTokens:   maxTokens,
	})
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, transportError(descriptor.Code, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, a.statusError(ctx, descriptor.Code, streamReq.Model, resp)
	}

	chunks := make(chan domain.RawChunk)

	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		reader := stream.NewLineReader(resp.Body)
		for {
			line, readErr := reader.Next()
			if readErr != nil {
				if errors.Is(readErr, io.EOF) || ctx.Err() != nil {
					return
				}
				select {
				case chunks <- domain.RawChunk{Err: transportError(descriptor.Code, readErr)}:
				case <-ctx.Done():
				}
				return
			}

			select {
			case chunks <- domain.RawChunk{Data: line}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}

func (a *Adapter) buildRequest(
	ctx context.Context,
	descriptor domain.ProviderDescriptor,
	mode domain.RoutingMode,
	c call,
) (*http.Request, error) {
	if mode == domain.ModeRelay {
		return a.relayRequest(ctx, c)
	}

	switch descriptor.Family {
	case domain.FamilyOpenAI:
		return a.openAIRequest(ctx, descriptor, c)
	case domain.FamilyAnthropic:
		return a.anthropicRequest(ctx, descriptor, c)
	case domain.FamilyGemini:
		return a.geminiRequest(ctx, descriptor, c)
	default:
		return nil, fmt.Errorf("provider %s: unsupported family %s", descriptor.Code, descriptor.Family)
	}
}

// relayRequest targets the unified relay: the master key authenticates, the caller key rides in the body.
func (a *Adapter) relayRequest(ctx context.Context, c call) (*http.Request, error) {
	body := openAIRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(c.messages),
		Stream:      c.stream,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		APIKey:      c.key,
	}
	if c.stream {
		body.StreamOptions = &openAIStreamOptions{IncludeUsage: true}
	}

	req, err := newJSONRequest(ctx, joinURL(a.cfg.RelayBaseURL, "/v1/chat/completions"), body, c.stream)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.RelayMasterKey)
	return req, nil
}

func (a *Adapter) openAIRequest(ctx context.Context, d domain.ProviderDescriptor, c call) (*http.Request, error) {
	body := openAIRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(c.messages),
		Stream:      c.stream,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if c.stream {
		body.StreamOptions = &openAIStreamOptions{IncludeUsage: true}
	}

	req, err := newJSONRequest(ctx, joinURL(d.BaseURL, "/v1/chat/completions"), body, c.stream)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	return req, nil
}

func (a *Adapter) anthropicRequest(ctx context.Context, d domain.ProviderDescriptor, c call) (*http.Request, error) {
	messages, system := toAnthropicMessages(c.messages)

	maxTokens := c.maxTokens
	if maxTokens <= 0 {
		maxTokens = a.cfg.AnthropicMaxTokens
	}

	body := anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Messages:    messages,
		System:      system,
		Stream:      c.stream,
		Temperature: c.temperature,
	}

	req, err := newJSONRequest(ctx, joinURL(d.BaseURL, "/v1/messages"), body, c.stream)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.key)
	req.Header.Set("anthropic-version", a.cfg.AnthropicVersion)
	return req, nil
}

func (a *Adapter) geminiRequest(ctx context.Context, d domain.ProviderDescriptor, c call) (*http.Request, error) {
	contents, system := toGeminiContents(c.messages)

	body := geminiRequest{
		Contents:          contents,
		SystemInstruction: system,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxTokens,
		},
	}

	method := "generateContent"
	query := url.Values{}
	if c.stream {
		method = "streamGenerateContent"
		query.Set("alt", "sse")
	}
	query.Set("key", c.key)

	endpoint := joinURL(d.BaseURL, "/v1beta/models/"+url.PathEscape(c.model)+":"+method) + "?" + query.Encode()

	return newJSONRequest(ctx, endpoint, body, c.stream)
}

func newJSONRequest(ctx context.Context, endpoint string, body any, streaming bool) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

// statusError classifies a rejected response and logs its body.
func (a *Adapter) statusError(ctx context.Context, provider, model string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, a.cfg.ErrorBodyLimit))
	body := strings.TrimSpace(string(raw))

	observability.FromContext(ctx).Warn("upstream rejected request",
		observability.String("provider", provider),
		observability.String("model", model),
		observability.Int("status", resp.StatusCode),
		observability.String("body", body))

	return &domain.UpstreamError{
		Kind:       domain.KindForStatus(resp.StatusCode),
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       body,
	}
}

// redactedValue replaces credentials carried in request URLs.
const redactedValue = "REDACTED"

// transportError wraps a failed round trip. Gemini takes its key as a query
// parameter and *url.Error prints the full URL, so the key is masked first.
func transportError(provider string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = &url.Error{Op: urlErr.Op, URL: redactURL(urlErr.URL), Err: urlErr.Err}
	}

	return &domain.UpstreamError{
		Kind:     domain.ErrUpstream,
		Provider: provider,
		Cause:    err,
	}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redactedValue
	}

	query := u.Query()
	if query.Has("key") {
		query.Set("key", redactedValue)
		u.RawQuery = query.Encode()
	}
	return u.Redacted()
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
