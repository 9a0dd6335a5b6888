// Package api calls the standalone summary service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/observability"
)

const maxResponseBytes = 1 << 20

// Config contains summary service settings.
type Config struct {
	BaseURL          string        `env:"SUMMARY_API_BASE_URL"   envDefault:"http://localhost:8000"`
	Timeout          time.Duration `env:"SUMMARY_API_TIMEOUT"    envDefault:"30s"`
	SummaryMaxLength int           `env:"SUMMARY_API_MAX_LENGTH" envDefault:"150"`
	SummaryMinLength int           `env:"SUMMARY_API_MIN_LENGTH" envDefault:"30"`
	TitleMaxLength   int           `env:"SUMMARY_API_TITLE_MAX"  envDefault:"30"`
	TitleMinLength   int           `env:"SUMMARY_API_TITLE_MIN"  envDefault:"5"`
}

// Client implements domain.Summarizer over the summary service HTTP API.
type Client struct {
	cfg        *Config
	httpClient *http.Client
}

// NewClient creates a new summary service client (DI constructor).
func NewClient(cfg *Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type lengthRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"maxLength"`
	MinLength int    `json:"minLength"`
}

// Summarize posts text to /summarize and returns its summary and keywords.
func (c *Client) Summarize(ctx context.Context, text string) (*domain.SummaryResult, error) {
	body, err := c.post(ctx, "/summarize", lengthRequest{
		Text:      text,
		MaxLength: c.cfg.SummaryMaxLength,
		MinLength: c.cfg.SummaryMinLength,
	})
	if err != nil {
		return nil, err
	}

	result := &domain.SummaryResult{Keywords: []string{}}

	if summary := gjson.GetBytes(body, "summary"); summary.Exists() && summary.Type != gjson.Null {
		s := summary.String()
		result.Summary = &s
	}
	for _, keyword := range gjson.GetBytes(body, "keywords").Array() {
		if k := strings.TrimSpace(keyword.String()); k != "" {
			result.Keywords = append(result.Keywords, k)
		}
	}

	observability.FromContext(ctx).Debug("summary generated",
		observability.Int("keywords", len(result.Keywords)),
		observability.Int64("processing_ms", gjson.GetBytes(body, "processingTimeMs").Int()))

	return result, nil
}

// Title posts text to /title-summarize and returns the short title.
func (c *Client) Title(ctx context.Context, text string) (string, error) {
	body, err := c.post(ctx, "/title-summarize", lengthRequest{
		Text:      text,
		MaxLength: c.cfg.TitleMaxLength,
		MinLength: c.cfg.TitleMinLength,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(gjson.GetBytes(body, "title").String()), nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("summary service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read summary response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("summary service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("summary service returned invalid JSON from %s", path)
	}

	return body, nil
}
