package domain

import (
	"strconv"
	"strings"
	"time"
)

// ProviderFamily is the wire-protocol family an upstream provider speaks.
// The set is closed; every switch over it must be exhaustive.
type ProviderFamily int

const (
	// FamilyOpenAI covers OpenAI and every OpenAI-compatible relay.
	FamilyOpenAI ProviderFamily = iota + 1
	// FamilyAnthropic covers the Anthropic messages API.
	FamilyAnthropic
	// FamilyGemini covers the Google Gemini generateContent API.
	FamilyGemini
)

// String returns the canonical family name.
func (f ProviderFamily) String() string {
	switch f {
	case FamilyOpenAI:
		return "openai"
	case FamilyAnthropic:
		return "anthropic"
	case FamilyGemini:
		return "gemini"
	}
	return "unknown"
}

// FamilyForCode maps a caller-supplied provider code to its family.
func FamilyForCode(code string) (ProviderFamily, bool) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "openai", "litellm":
		return FamilyOpenAI, true
	case "anthropic", "claude":
		return FamilyAnthropic, true
	case "gemini", "google":
		return FamilyGemini, true
	default:
		return 0, false
	}
}

// RoutingMode selects how a request reaches the provider.
type RoutingMode string

const (
	// ModeRelay sends every request to one unified relay endpoint with a shared master credential.
	ModeRelay RoutingMode = "relay"
	// ModeDirect reshapes the request per provider and sends it with the caller's own credential.
	ModeDirect RoutingMode = "direct"
)

// ParseRoutingMode parses a routing mode, defaulting to direct when empty.
func ParseRoutingMode(s string) (RoutingMode, bool) {
	switch RoutingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDirect:
		return ModeDirect, true
	case ModeRelay:
		return ModeRelay, true
	default:
		return "", false
	}
}

// AuthShape describes where the credential travels on an upstream request.
type AuthShape int

const (
	// AuthBearer sends "Authorization: Bearer <key>".
	AuthBearer AuthShape = iota + 1
	// AuthHeaderKey sends the key in a provider-specific header.
	AuthHeaderKey
	// AuthQueryKey sends the key as the "key" query parameter.
	AuthQueryKey
)

// ProviderDescriptor is the static routing information for one provider code.
type ProviderDescriptor struct {
	Code    string
	Family  ProviderFamily
	BaseURL string
	Auth    AuthShape
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// IsZero reports whether no tokens were counted.
func (u Usage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// ChatStatus is the lifecycle state of a chat turn.
type ChatStatus string

const (
	StatusQuestion        ChatStatus = "QUESTION"
	StatusAnswer          ChatStatus = "ANSWER"
	StatusSummaryKeywords ChatStatus = "SUMMARY_KEYWORDS"
)

// ChatTurn is the persisted state of one question/answer turn.
type ChatTurn struct {
	ID           int64      `json:"chat_id"`
	RoomID       int64      `json:"room_id"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer,omitempty"`
	Status       ChatStatus `json:"status"`
	Summary      *string    `json:"summary,omitempty"`
	Keywords     []string   `json:"keywords,omitempty"`
	Usage        Usage      `json:"usage"`
	Model        string     `json:"model"`
	ProviderCode string     `json:"provider"`
	AnsweredAt   *time.Time `json:"answered_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ModelEntry is one catalog row for a provider.
type ModelEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SummaryResult carries the long summary and keywords of an answer.
// Summary is nil when summarization degraded.
type SummaryResult struct {
	Summary  *string  `json:"summary"`
	Keywords []string `json:"keywords"`
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
