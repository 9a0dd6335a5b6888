package domain

import "time"

// StreamEventKind tags a normalized stream event.
type StreamEventKind int

const (
	EventDelta StreamEventKind = iota + 1
	EventDone
	EventError
	EventUsage
)

// String returns the lowercase kind name used in logs and metric labels.
func (k StreamEventKind) String() string {
	switch k {
	case EventDelta:
		return "delta"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	case EventUsage:
		return "usage"
	}
	return "unknown"
}

// StreamEvent is a normalized event derived from the upstream byte stream.
// Only the field matching Kind is meaningful.
type StreamEvent struct {
	Kind  StreamEventKind
	Delta string
	Usage Usage
	Err   error
}

// DeltaEvent builds a delta event.
func DeltaEvent(text string) StreamEvent { return StreamEvent{Kind: EventDelta, Delta: text} }

// DoneEvent builds the terminal done event.
func DoneEvent() StreamEvent { return StreamEvent{Kind: EventDone} }

// ErrorEvent builds an error event.
func ErrorEvent(err error) StreamEvent { return StreamEvent{Kind: EventError, Err: err} }

// UsageEvent builds a usage event.
func UsageEvent(u Usage) StreamEvent { return StreamEvent{Kind: EventUsage, Usage: u} }

// RawChunk is one undecoded unit read from an upstream stream.
// A chunk with Err set is the last one on its channel.
type RawChunk struct {
	Data string
	Err  error
}

// SessionEventType names an event pushed to a room subscriber.
type SessionEventType string

const (
	SessionInit            SessionEventType = "INIT"
	SessionCreated         SessionEventType = "CREATED"
	SessionDelta           SessionEventType = "DELTA"
	SessionAnswered        SessionEventType = "ANSWERED"
	SessionError           SessionEventType = "ERROR"
	SessionSummaryKeywords SessionEventType = "SUMMARY_KEYWORDS"
	SessionRoomTitle       SessionEventType = "ROOM_TITLE"
	SessionHeartbeat       SessionEventType = "HEARTBEAT"
)

// SessionEvent is the envelope delivered to a subscriber.
type SessionEvent struct {
	Type    SessionEventType `json:"type"`
	Payload any              `json:"payload"`
}

// InitPayload greets a new subscriber.
type InitPayload struct {
	RoomID int64 `json:"room_id"`
}

// CreatedPayload is sent when a chat turn is accepted.
type CreatedPayload struct {
	ChatID   int64  `json:"chat_id"`
	RoomID   int64  `json:"room_id"`
	Question string `json:"question"`
	Model    string `json:"model"`
}

// DeltaPayload carries one streamed fragment.
type DeltaPayload struct {
	ChatID int64  `json:"chat_id"`
	Delta  string `json:"delta"`
}

// AnsweredPayload carries the final answer.
type AnsweredPayload struct {
	ChatID     int64     `json:"chat_id"`
	Answer     string    `json:"answer"`
	AnsweredAt time.Time `json:"answered_at"`
	Usage      Usage     `json:"usage"`
}

// ErrorPayload reports an abandoned turn.
type ErrorPayload struct {
	ChatID int64  `json:"chat_id"`
	Error  string `json:"error"`
}

// SummaryKeywordsPayload carries the summarization result.
type SummaryKeywordsPayload struct {
	RoomID   int64    `json:"room_id"`
	ChatID   int64    `json:"chat_id"`
	Summary  *string  `json:"summary"`
	Keywords []string `json:"keywords"`
}

// RoomTitlePayload carries the generated room title.
type RoomTitlePayload struct {
	RoomID int64  `json:"room_id"`
	Title  string `json:"title"`
}
