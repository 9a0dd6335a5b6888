// Package redis persists chat turns in Redis hashes so several gateway instances can share them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/observability"
)

// Config configures the Redis store.
type Config struct {
	Addr      string `env:"REDIS_ADDR"       envDefault:"localhost:6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB"         envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"ttibu"`
}

// updateIfExists applies HSET only to an existing chat so updates never resurrect a missing turn.
var updateIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// Store implements domain.ChatStore.
type Store struct {
	client *redis.Client
	prefix string
}

// NewClient creates a client from cfg.
func NewClient(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewStore creates a new Redis chat store (DI constructor).
func NewStore(client *redis.Client, cfg *Config) *Store {
	return &Store{
		client: client,
		prefix: cfg.KeyPrefix,
	}
}

func (s *Store) chatKey(chatID int64) string {
	return fmt.Sprintf("%s:chat:%d", s.prefix, chatID)
}

func (s *Store) seqKey() string {
	return s.prefix + ":chat:seq"
}

func (s *Store) roomTitleKey(roomID int64) string {
	return fmt.Sprintf("%s:room:%d:title", s.prefix, roomID)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// CreateChat allocates an id and writes the turn.
func (s *Store) CreateChat(ctx context.Context, turn *domain.ChatTurn) error {
	if turn == nil {
		return errors.New("chat turn cannot be nil")
	}

	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate chat id: %w", err)
	}

	keywords, err := json.Marshal(nonNil(turn.Keywords))
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}

	fields := map[string]any{
		"id":                id,
		"room_id":           turn.RoomID,
		"question":          turn.Question,
		"answer":            turn.Answer,
		"status":            string(turn.Status),
		"summary":           "null",
		"keywords":          string(keywords),
		"prompt_tokens":     turn.Usage.PromptTokens,
		"completion_tokens": turn.Usage.CompletionTokens,
		"total_tokens":      turn.Usage.TotalTokens,
		"model":             turn.Model,
		"provider":          turn.ProviderCode,
		"answered_at":       "",
		"created_at":        turn.CreatedAt.UnixNano(),
		"updated_at":        turn.UpdatedAt.UnixNano(),
	}

	if err := s.client.HSet(ctx, s.chatKey(id), fields).Err(); err != nil {
		return fmt.Errorf("failed to write chat: %w", err)
	}

	turn.ID = id
	observability.FromContext(ctx).Debug("chat created", observability.Int64("chat_id", id))
	return nil
}

// GetChat loads a turn by id.
func (s *Store) GetChat(ctx context.Context, chatID int64) (*domain.ChatTurn, error) {
	fields, err := s.client.HGetAll(ctx, s.chatKey(chatID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("chat %d: %w", chatID, domain.ErrChatNotFound)
	}

	return decodeTurn(chatID, fields)
}

// SaveAnswer stores the final answer and moves the turn to ANSWER.
func (s *Store) SaveAnswer(
	ctx context.Context,
	chatID int64,
	answer string,
	usage domain.Usage,
	answeredAt time.Time,
) error {
	return s.update(ctx, chatID,
		"answer", answer,
		"status", string(domain.StatusAnswer),
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_tokens", usage.TotalTokens,
		"answered_at", answeredAt.UnixNano(),
		"updated_at", time.Now().UTC().UnixNano(),
	)
}

// SaveSummary stores the summary result and moves the turn to SUMMARY_KEYWORDS.
func (s *Store) SaveSummary(ctx context.Context, chatID int64, result domain.SummaryResult) error {
	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	keywords, err := json.Marshal(nonNil(result.Keywords))
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}

	return s.update(ctx, chatID,
		"summary", string(summary),
		"keywords", string(keywords),
		"status", string(domain.StatusSummaryKeywords),
		"updated_at", time.Now().UTC().UnixNano(),
	)
}

// SaveRoomTitle stores the title of a room.
func (s *Store) SaveRoomTitle(ctx context.Context, roomID int64, title string) error {
	if err := s.client.Set(ctx, s.roomTitleKey(roomID), title, 0).Err(); err != nil {
		return fmt.Errorf("failed to save room title: %w", err)
	}
	return nil
}

// RoomTitle returns the stored title of a room.
func (s *Store) RoomTitle(ctx context.Context, roomID int64) (string, error) {
	title, err := s.client.Get(ctx, s.roomTitleKey(roomID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load room title: %w", err)
	}
	return title, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) update(ctx context.Context, chatID int64, args ...any) error {
	updated, err := updateIfExists.Run(ctx, s.client, []string{s.chatKey(chatID)}, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	if updated == 0 {
		return fmt.Errorf("chat %d: %w", chatID, domain.ErrChatNotFound)
	}
	return nil
}

func decodeTurn(chatID int64, fields map[string]string) (*domain.ChatTurn, error) {
	turn := &domain.ChatTurn{
		ID:           chatID,
		Question:     fields["question"],
		Answer:       fields["answer"],
		Status:       domain.ChatStatus(fields["status"]),
		Model:        fields["model"],
		ProviderCode: fields["provider"],
	}

	var err error
	if turn.RoomID, err = parseInt(fields, "room_id"); err != nil {
		return nil, err
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"prompt_tokens", &turn.Usage.PromptTokens},
		{"completion_tokens", &turn.Usage.CompletionTokens},
		{"total_tokens", &turn.Usage.TotalTokens},
	}
	for _, f := range ints {
		v, err := parseInt(fields, f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = int(v)
	}

	if err := json.Unmarshal([]byte(fields["summary"]), &turn.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	if err := json.Unmarshal([]byte(fields["keywords"]), &turn.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}

	if raw := fields["answered_at"]; raw != "" {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode answered_at: %w", err)
		}
		at := time.Unix(0, nanos).UTC()
		turn.AnsweredAt = &at
	}

	created, err := parseInt(fields, "created_at")
	if err != nil {
		return nil, err
	}
	updated, err := parseInt(fields, "updated_at")
	if err != nil {
		return nil, err
	}
	turn.CreatedAt = time.Unix(0, created).UTC()
	turn.UpdatedAt = time.Unix(0, updated).UTC()

	return turn, nil
}

func parseInt(fields map[string]string, name string) (int64, error) {
	raw := fields[name]
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return v, nil
}

func nonNil(keywords []string) []string {
	if keywords == nil {
		return []string{}
	}
	return keywords
}
