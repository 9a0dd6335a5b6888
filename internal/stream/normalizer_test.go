package stream_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/stream"
)

var families = []domain.ProviderFamily{
	domain.FamilyOpenAI,
	domain.FamilyAnthropic,
	domain.FamilyGemini,
}

func familyOf(t *testing.T, code string) domain.ProviderFamily {
	t.Helper()
	family, ok := domain.FamilyForCode(code)
	require.True(t, ok)
	return family
}

func TestExtractDelta(t *testing.T) {
	tests := []struct {
		name   string
		family domain.ProviderFamily
		chunk  string
		want   string
		wantOK bool
	}{
		{"openai with data prefix", domain.FamilyOpenAI, `data: {"choices":[{"delta":{"content":"hi"}}]}`, "hi", true},
		{"openai without prefix", domain.FamilyOpenAI, `{"choices":[{"delta":{"content":"x"}}]}`, "x", true},
		{"openai empty content", domain.FamilyOpenAI, `{"choices":[{"delta":{"content":""}}]}`, "", true},
		{"openai role only", domain.FamilyOpenAI, `{"choices":[{"delta":{"role":"assistant"}}]}`, "", false},
		{"openai null content", domain.FamilyOpenAI, `{"choices":[{"delta":{"content":null}}]}`, "", false},
		{"openai no choices", domain.FamilyOpenAI, `{"usage":{"prompt_tokens":1}}`, "", false},
		{"anthropic content block delta", domain.FamilyAnthropic, `{"type":"content_block_delta","delta":{"text":"yo"}}`, "yo", true},
		{"anthropic other type", domain.FamilyAnthropic, `{"type":"message_start","delta":{"text":"yo"}}`, "", false},
		{"anthropic message stop", domain.FamilyAnthropic, `{"type":"message_stop"}`, "", false},
		{"gemini text", domain.FamilyGemini, `{"candidates":[{"content":{"parts":[{"text":"g"}]}}]}`, "g", true},
		{"gemini no parts", domain.FamilyGemini, `{"candidates":[{"content":{}}]}`, "", false},
		{"uppercase data prefix", domain.FamilyOpenAI, `DATA:{"choices":[{"delta":{"content":"u"}}]}`, "u", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := stream.ExtractDelta(tt.family, tt.chunk)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestIsDone(t *testing.T) {
	tests := []struct {
		name   string
		family domain.ProviderFamily
		chunk  string
		want   bool
	}{
		{"openai final structural chunk is not done", domain.FamilyOpenAI, `data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`, false},
		{"anthropic message stop", domain.FamilyAnthropic, `{"type":"message_stop"}`, true},
		{"anthropic delta", domain.FamilyAnthropic, `{"type":"content_block_delta","delta":{"text":"a"}}`, false},
		{"gemini stop", domain.FamilyGemini, `{"candidates":[{"finishReason":"STOP","content":{"parts":[{"text":""}]}}]}`, true},
		{"gemini max tokens", domain.FamilyGemini, `{"candidates":[{"finishReason":"MAX_TOKENS"}]}`, true},
		{"gemini safety", domain.FamilyGemini, `{"candidates":[{"finishReason":"SAFETY"}]}`, true},
		{"gemini other reason", domain.FamilyGemini, `{"candidates":[{"finishReason":"RECITATION"}]}`, false},
		{"gemini in progress", domain.FamilyGemini, `{"candidates":[{"content":{"parts":[{"text":"x"}]}}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, stream.IsDone(tt.family, tt.chunk))
		})
	}
}

func TestSentinelWinsForEveryFamily(t *testing.T) {
	for _, family := range families {
		for _, chunk := range []string{"[DONE]", "data: [DONE]", "data:[done]", "  DATA: [Done]  "} {
			require.True(t, stream.IsDone(family, chunk), "%s %q", family, chunk)

			_, ok := stream.ExtractDelta(family, chunk)
			require.False(t, ok)

			_, ok = stream.ExtractUsage(family, chunk)
			require.False(t, ok)
		}
	}
}

func TestMalformedInput(t *testing.T) {
	inputs := []string{"", "   ", "null", "data:", "data: ", "not json", "{", `{"choices":`, "[1,2]", `"string"`, "42", "data: null"}

	for _, family := range families {
		for _, chunk := range inputs {
			require.NotPanics(t, func() {
				_, ok := stream.ExtractDelta(family, chunk)
				require.False(t, ok)
				require.False(t, stream.IsDone(family, chunk))
				_, ok = stream.ExtractUsage(family, chunk)
				require.False(t, ok)
			}, "%s %q", family, chunk)
		}
	}
}

func TestExtractDeltaIsPure(t *testing.T) {
	chunk := `data: {"choices":[{"delta":{"content":"same"}}]}`

	first, ok1 := stream.ExtractDelta(domain.FamilyOpenAI, chunk)
	second, ok2 := stream.ExtractDelta(domain.FamilyOpenAI, chunk)

	require.Equal(t, first, second)
	require.Equal(t, ok1, ok2)
}

func TestExtractUsage(t *testing.T) {
	t.Run("openai usage object", func(t *testing.T) {
		usage, ok := stream.ExtractUsage(domain.FamilyOpenAI,
			`data: {"choices":[],"usage":{"prompt_tokens":5,"completion_tokens":7,"total_tokens":12}}`)
		require.True(t, ok)
		require.Equal(t, domain.Usage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12}, usage)
	})

	t.Run("openai total derived when missing", func(t *testing.T) {
		usage, ok := stream.ExtractUsage(domain.FamilyOpenAI, `{"usage":{"prompt_tokens":2,"completion_tokens":3}}`)
		require.True(t, ok)
		require.Equal(t, 5, usage.TotalTokens)
	})

	t.Run("openai null usage is absent", func(t *testing.T) {
		_, ok := stream.ExtractUsage(domain.FamilyOpenAI, `{"choices":[{"delta":{"content":"a"}}],"usage":null}`)
		require.False(t, ok)
	})

	t.Run("gemini usage metadata", func(t *testing.T) {
		usage, ok := stream.ExtractUsage(domain.FamilyGemini,
			`{"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":6,"totalTokenCount":10}}`)
		require.True(t, ok)
		require.Equal(t, domain.Usage{PromptTokens: 4, CompletionTokens: 6, TotalTokens: 10}, usage)
	})

	t.Run("anthropic never reports usage", func(t *testing.T) {
		_, ok := stream.ExtractUsage(domain.FamilyAnthropic,
			`{"type":"message_delta","usage":{"output_tokens":15}}`)
		require.False(t, ok)
	})
}

func TestScenarios(t *testing.T) {
	t.Run("openai delta chunk", func(t *testing.T) {
		family := familyOf(t, "openai")
		chunk := "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}"

		delta, ok := stream.ExtractDelta(family, chunk)
		require.True(t, ok)
		require.Equal(t, "hi", delta)
		require.False(t, stream.IsDone(family, chunk))
	})

	t.Run("sentinel for anthropic", func(t *testing.T) {
		require.True(t, stream.IsDone(familyOf(t, "anthropic"), "data: [DONE]"))
	})

	t.Run("message stop for claude", func(t *testing.T) {
		family := familyOf(t, "claude")
		chunk := `{"type":"message_stop"}`

		require.True(t, stream.IsDone(family, chunk))
		_, ok := stream.ExtractDelta(family, chunk)
		require.False(t, ok)
	})

	t.Run("gemini stop with empty text", func(t *testing.T) {
		chunk := `{"candidates":[{"finishReason":"STOP","content":{"parts":[{"text":""}]}}]}`
		require.True(t, stream.IsDone(familyOf(t, "gemini"), chunk))
	})
}

func TestUnknownFamily(t *testing.T) {
	chunk := `{"choices":[{"delta":{"content":"hi"}}]}`

	_, ok := stream.ExtractDelta(domain.ProviderFamily(0), chunk)
	require.False(t, ok)
	require.False(t, stream.IsDone(domain.ProviderFamily(0), chunk))
	require.True(t, stream.IsDone(domain.ProviderFamily(0), "[DONE]"))
}
