package domain_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/provider/registry"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg, err := registry.NewDefaultRegistry(&registry.Config{})
	require.NoError(t, err)
	return reg
}

func rawChunks(data ...string) <-chan domain.RawChunk {
	ch := make(chan domain.RawChunk, len(data))
	for _, d := range data {
		ch <- domain.RawChunk{Data: d}
	}
	close(ch)
	return ch
}

func drain(t *testing.T, events <-chan domain.StreamEvent) []domain.StreamEvent {
	t.Helper()

	var out []domain.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, event)
		case <-timeout:
			t.Fatal("event stream did not close")
		}
	}
}

func kinds(events []domain.StreamEvent) []domain.StreamEventKind {
	out := make([]domain.StreamEventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

// memStore is an in-memory ChatStore.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	chats  map[int64]domain.ChatTurn
	titles map[int64]string
}

func newMemStore() *memStore {
	return &memStore{
		chats:  make(map[int64]domain.ChatTurn),
		titles: make(map[int64]string),
	}
}

func (s *memStore) CreateChat(_ context.Context, turn *domain.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	turn.ID = s.nextID
	s.chats[turn.ID] = *turn
	return nil
}

func (s *memStore) GetChat(_ context.Context, chatID int64) (*domain.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn, ok := s.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %d: %w", chatID, domain.ErrChatNotFound)
	}
	return &turn, nil
}

func (s *memStore) SaveAnswer(_ context.Context, chatID int64, answer string, usage domain.Usage, answeredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn, ok := s.chats[chatID]
	if !ok {
		return domain.ErrChatNotFound
	}
	turn.Answer = answer
	turn.Usage = usage
	turn.Status = domain.StatusAnswer
	turn.AnsweredAt = &answeredAt
	s.chats[chatID] = turn
	return nil
}

func (s *memStore) SaveSummary(_ context.Context, chatID int64, result domain.SummaryResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn, ok := s.chats[chatID]
	if !ok {
		return domain.ErrChatNotFound
	}
	turn.Summary = result.Summary
	turn.Keywords = result.Keywords
	turn.Status = domain.StatusSummaryKeywords
	s.chats[chatID] = turn
	return nil
}

func (s *memStore) SaveRoomTitle(_ context.Context, roomID int64, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.titles[roomID] = title
	return nil
}

func (s *memStore) seed(turn domain.ChatTurn) int64 {
	_ = s.CreateChat(context.Background(), &turn)
	return turn.ID
}

func (s *memStore) chat(id int64) domain.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats[id]
}

// recordingPublisher keeps every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

type published struct {
	key   string
	event domain.SessionEvent
}

func (p *recordingPublisher) Publish(sessionKey string, event domain.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{key: sessionKey, event: event})
}

func (p *recordingPublisher) types() []domain.SessionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.SessionEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event.Type)
	}
	return out
}

func (p *recordingPublisher) last() published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func (p *recordingPublisher) ofType(typ domain.SessionEventType) []domain.SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []domain.SessionEvent
	for _, e := range p.events {
		if e.event.Type == typ {
			out = append(out, e.event)
		}
	}
	return out
}

// scriptedGateway answers each call with the next scripted result.
type scriptedGateway struct {
	mu       sync.Mutex
	calls    []domain.AnswerRequest
	callTime []time.Time
	script   []func() (<-chan domain.StreamEvent, error)
}

func (g *scriptedGateway) Answer(_ context.Context, req domain.AnswerRequest) (<-chan domain.StreamEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, req)
	g.callTime = append(g.callTime, time.Now())

	step := g.script[len(g.script)-1]
	if len(g.calls) <= len(g.script) {
		step = g.script[len(g.calls)-1]
	}
	return step()
}

func (g *scriptedGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func eventsOf(events ...domain.StreamEvent) func() (<-chan domain.StreamEvent, error) {
	return func() (<-chan domain.StreamEvent, error) {
		ch := make(chan domain.StreamEvent, len(events))
		for _, e := range events {
			ch <- e
		}
		close(ch)
		return ch, nil
	}
}

func failWith(err error) func() (<-chan domain.StreamEvent, error) {
	return func() (<-chan domain.StreamEvent, error) {
		return nil, err
	}
}

// passthroughSealer treats sealed keys as plaintext prefixed with "sealed:".
type passthroughSealer struct{}

func (passthroughSealer) Encrypt(plaintext string) (string, error) {
	return "sealed:" + plaintext, nil
}

func (passthroughSealer) Decrypt(sealed string) (string, error) {
	if len(sealed) < 7 || sealed[:7] != "sealed:" {
		return "", fmt.Errorf("bad envelope: %w", domain.ErrCrypto)
	}
	return sealed[7:], nil
}
