// Package stream normalizes raw upstream chunks into delta, completion and usage signals.
// Every function is a pure, best-effort parse: malformed chunks yield "absent" and never an error.
package stream

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/davidbz/ttibu/internal/domain"
)

const (
	ssePrefix = "data:"
	sentinel  = "[DONE]"
)

// ExtractDelta returns the text fragment carried by chunk, if any.
func ExtractDelta(family domain.ProviderFamily, chunk string) (string, bool) {
	if IsSentinel(chunk) {
		return "", false
	}

	root, ok := parse(chunk)
	if !ok {
		return "", false
	}

	var value gjson.Result
	switch family {
	case domain.FamilyOpenAI:
		value = root.Get("choices.0.delta.content")
	case domain.FamilyAnthropic:
		if root.Get("type").String() != "content_block_delta" {
			return "", false
		}
		value = root.Get("delta.text")
	case domain.FamilyGemini:
		value = root.Get("candidates.0.content.parts.0.text")
	default:
		return "", false
	}

	if value.Type != gjson.String {
		return "", false
	}
	return value.String(), true
}

// IsDone reports whether chunk marks the end of the stream.
// The shared sentinel wins over every provider rule. OpenAI-compatible streams have no other signal.
func IsDone(family domain.ProviderFamily, chunk string) bool {
	if IsSentinel(chunk) {
		return true
	}

	root, ok := parse(chunk)
	if !ok {
		return false
	}

	switch family {
	case domain.FamilyOpenAI:
		return false
	case domain.FamilyAnthropic:
		return root.Get("type").String() == "message_stop"
	case domain.FamilyGemini:
		switch root.Get("candidates.0.finishReason").String() {
		case "STOP", "MAX_TOKENS", "SAFETY":
			return true
		}
		return false
	default:
		return false
	}
}

// ExtractUsage returns token usage metadata carried by chunk, if any.
func ExtractUsage(family domain.ProviderFamily, chunk string) (domain.Usage, bool) {
	if IsSentinel(chunk) {
		return domain.Usage{}, false
	}

	root, ok := parse(chunk)
	if !ok {
		return domain.Usage{}, false
	}

	switch family {
	case domain.FamilyOpenAI:
		usage := root.Get("usage")
		if !usage.IsObject() {
			return domain.Usage{}, false
		}
		return buildUsage(
			usage.Get("prompt_tokens").Int(),
			usage.Get("completion_tokens").Int(),
			usage.Get("total_tokens").Int(),
		), true
	case domain.FamilyGemini:
		usage := root.Get("usageMetadata")
		if !usage.IsObject() {
			return domain.Usage{}, false
		}
		return buildUsage(
			usage.Get("promptTokenCount").Int(),
			usage.Get("candidatesTokenCount").Int(),
			usage.Get("totalTokenCount").Int(),
		), true
	case domain.FamilyAnthropic:
		return domain.Usage{}, false
	default:
		return domain.Usage{}, false
	}
}

// IsSentinel reports whether chunk is the provider-independent end marker.
func IsSentinel(chunk string) bool {
	return strings.EqualFold(payload(chunk), sentinel)
}

// payload strips surrounding space and an optional SSE data prefix.
func payload(chunk string) string {
	s := strings.TrimSpace(chunk)
	if len(s) >= len(ssePrefix) && strings.EqualFold(s[:len(ssePrefix)], ssePrefix) {
		s = strings.TrimSpace(s[len(ssePrefix):])
	}
	return s
}

func parse(chunk string) (gjson.Result, bool) {
	p := payload(chunk)
	if p == "" || !gjson.Valid(p) {
		return gjson.Result{}, false
	}

	root := gjson.Parse(p)
	if !root.IsObject() {
		return gjson.Result{}, false
	}
	return root, true
}

func buildUsage(prompt, completion, total int64) domain.Usage {
	if total == 0 {
		total = prompt + completion
	}
	return domain.Usage{
		PromptTokens:     int(prompt),
		CompletionTokens: int(completion),
		TotalTokens:      int(total),
	}
}
