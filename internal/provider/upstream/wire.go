package upstream

import (
	"strings"

	"github.com/davidbz/ttibu/internal/domain"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIRequest struct {
	Model         string               `json:"model"`
	Messages      []openAIMessage      `json:"messages"`
	Stream        bool                 `json:"stream"`
	Temperature   float64              `json:"temperature"`
	MaxTokens     int                  `json:"max_tokens,omitempty"`
	StreamOptions *openAIStreamOptions `json:"stream_options,omitempty"`
	APIKey        string               `json:"api_key,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Stream      bool               `json:"stream"`
	Temperature float64            `json:"temperature"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

// openAIRole maps caller roles onto the chat-completions role set.
func openAIRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "system", "developer":
		return "system"
	case "assistant":
		return "assistant"
	default:
		return "user"
	}
}

func toOpenAIMessages(messages []domain.Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openAIMessage{Role: openAIRole(m.Role), Content: m.Content})
	}
	return out
}

// toAnthropicMessages splits system text out and folds every other role onto user/assistant.
func toAnthropicMessages(messages []domain.Message) ([]anthropicMessage, string) {
	var system []string
	out := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		switch openAIRole(m.Role) {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			out = append(out, anthropicMessage{
				Role:    "assistant",
				Content: []anthropicContent{{Type: "text", Text: m.Content}},
			})
		default:
			out = append(out, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: m.Content}},
			})
		}
	}
	return out, strings.Join(system, "\n")
}

// toGeminiContents flattens every non-system message into a single text part.
func toGeminiContents(messages []domain.Message) ([]geminiContent, *geminiContent) {
	var (
		system []string
		body   []string
	)
	for _, m := range messages {
		if openAIRole(m.Role) == "system" {
			system = append(system, m.Content)
			continue
		}
		body = append(body, m.Content)
	}

	contents := []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: strings.Join(body, "\n")}},
	}}

	if len(system) == 0 {
		return contents, nil
	}
	return contents, &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n")}}}
}
