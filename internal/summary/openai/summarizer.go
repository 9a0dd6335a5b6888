// Package openai summarizes answers with a chat model through the official OpenAI SDK.
// Any OpenAI-compatible endpoint works, including a LiteLLM relay.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/observability"
)

const (
	summaryPrompt = "Summarize the text in at most %d characters and extract up to %d keywords. " +
		`Reply with JSON only: {"summary": string, "keywords": [string]}.`
	titlePrompt = "Write a title of at most %d characters for the text. Reply with the title only."
)

// Config contains summarizer model settings.
//   - APIKey: Maps to option.WithAPIKey()
//   - BaseURL: Maps to option.WithBaseURL()
//   - Timeout: Maps to option.WithRequestTimeout() (in seconds)
//   - MaxRetries: Maps to option.WithMaxRetries()
type Config struct {
	APIKey        string `env:"SUMMARY_OPENAI_API_KEY"`
	BaseURL       string `env:"SUMMARY_OPENAI_BASE_URL"     envDefault:"https://api.openai.com/v1"`
	Model         string `env:"SUMMARY_OPENAI_MODEL"        envDefault:"gpt-4o-mini"`
	Timeout       int    `env:"SUMMARY_OPENAI_TIMEOUT"      envDefault:"60"`
	MaxRetries    int    `env:"SUMMARY_OPENAI_MAX_RETRIES"  envDefault:"2"`
	SummaryLength int    `env:"SUMMARY_OPENAI_LENGTH"       envDefault:"150"`
	TitleLength   int    `env:"SUMMARY_OPENAI_TITLE_LENGTH" envDefault:"30"`
	MaxKeywords   int    `env:"SUMMARY_OPENAI_KEYWORDS"     envDefault:"5"`
}

// Summarizer implements domain.Summarizer.
type Summarizer struct {
	client openai.Client
	cfg    *Config
}

// NewSummarizer creates a new OpenAI-backed summarizer (DI constructor).
func NewSummarizer(cfg *Config) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("summary OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.Timeout)*time.Second))
	}

	return &Summarizer{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

// Summarize asks the model for a summary and keywords as JSON.
func (s *Summarizer) Summarize(ctx context.Context, text string) (*domain.SummaryResult, error) {
	content, err := s.complete(ctx, fmt.Sprintf(summaryPrompt, s.cfg.SummaryLength, s.cfg.MaxKeywords), text)
	if err != nil {
		return nil, err
	}

	payload := stripFence(content)
	if !gjson.Valid(payload) {
		return nil, errors.New("summary model returned non-JSON content")
	}

	result := &domain.SummaryResult{Keywords: []string{}}
	if summary := gjson.Get(payload, "summary"); summary.Exists() && summary.Type != gjson.Null {
		v := strings.TrimSpace(summary.String())
		result.Summary = &v
	}
	for _, keyword := range gjson.Get(payload, "keywords").Array() {
		if k := strings.TrimSpace(keyword.String()); k != "" {
			result.Keywords = append(result.Keywords, k)
		}
	}

	return result, nil
}

// Title asks the model for a short title.
func (s *Summarizer) Title(ctx context.Context, text string) (string, error) {
	content, err := s.complete(ctx, fmt.Sprintf(titlePrompt, s.cfg.TitleLength), text)
	if err != nil {
		return "", err
	}

	title := strings.Trim(strings.TrimSpace(content), `"'`)
	if runes := []rune(title); s.cfg.TitleLength > 0 && len(runes) > s.cfg.TitleLength {
		title = string(runes[:s.cfg.TitleLength])
	}
	return title, nil
}

func (s *Summarizer) complete(ctx context.Context, instruction, text string) (string, error) {
	logger := observability.FromContext(ctx)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instruction),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		logger.Warn("summary model call failed", observability.Error(err))
		return "", fmt.Errorf("summary model call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("summary model returned no choices")
	}

	logger.Debug("summary model call succeeded",
		observability.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(resp.Usage.CompletionTokens)))

	return resp.Choices[0].Message.Content, nil
}

// stripFence removes a markdown code fence around a JSON reply.
func stripFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
