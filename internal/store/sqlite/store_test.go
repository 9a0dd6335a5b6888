package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/store/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(&sqlite.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTurn(roomID int64) *domain.ChatTurn {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.ChatTurn{
		RoomID:       roomID,
		Question:     "what is go?",
		Status:       domain.StatusQuestion,
		Keywords:     []string{},
		Model:        "gpt-4o",
		ProviderCode: "openai",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestStore_CreateChat(t *testing.T) {
	ctx := context.Background()

	t.Run("should assign increasing ids", func(t *testing.T) {
		store := openStore(t)
		first := newTurn(1)
		second := newTurn(1)

		require.NoError(t, store.CreateChat(ctx, first))
		require.NoError(t, store.CreateChat(ctx, second))

		require.Positive(t, first.ID)
		require.Greater(t, second.ID, first.ID)
	})

	t.Run("should round trip a question", func(t *testing.T) {
		store := openStore(t)
		turn := newTurn(3)
		require.NoError(t, store.CreateChat(ctx, turn))

		got, err := store.GetChat(ctx, turn.ID)

		require.NoError(t, err)
		require.Equal(t, turn, got)
	})

	t.Run("should reject nil turns", func(t *testing.T) {
		require.Error(t, openStore(t).CreateChat(ctx, nil))
	})
}

func TestStore_GetChat(t *testing.T) {
	_, err := openStore(t).GetChat(context.Background(), 42)

	require.ErrorIs(t, err, domain.ErrChatNotFound)
}

func TestStore_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("should store the answer and usage", func(t *testing.T) {
		store := openStore(t)
		turn := newTurn(1)
		require.NoError(t, store.CreateChat(ctx, turn))
		answeredAt := time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC)
		usage := domain.Usage{PromptTokens: 3, CompletionTokens: 5, TotalTokens: 8}

		require.NoError(t, store.SaveAnswer(ctx, turn.ID, "a language", usage, answeredAt))

		got, err := store.GetChat(ctx, turn.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusAnswer, got.Status)
		require.Equal(t, "a language", got.Answer)
		require.Equal(t, usage, got.Usage)
		require.NotNil(t, got.AnsweredAt)
		require.True(t, answeredAt.Equal(*got.AnsweredAt))
		require.Nil(t, got.Summary)
	})

	t.Run("should store summary and keywords", func(t *testing.T) {
		store := openStore(t)
		turn := newTurn(1)
		require.NoError(t, store.CreateChat(ctx, turn))
		summary := "short"

		require.NoError(t, store.SaveSummary(ctx, turn.ID, domain.SummaryResult{
			Summary:  &summary,
			Keywords: []string{"go", "lang"},
		}))

		got, err := store.GetChat(ctx, turn.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusSummaryKeywords, got.Status)
		require.Equal(t, &summary, got.Summary)
		require.Equal(t, []string{"go", "lang"}, got.Keywords)
	})

	t.Run("should store a null summary", func(t *testing.T) {
		store := openStore(t)
		turn := newTurn(1)
		require.NoError(t, store.CreateChat(ctx, turn))

		require.NoError(t, store.SaveSummary(ctx, turn.ID, domain.SummaryResult{}))

		got, err := store.GetChat(ctx, turn.ID)
		require.NoError(t, err)
		require.Nil(t, got.Summary)
		require.Equal(t, []string{}, got.Keywords)
	})

	t.Run("should report unknown chats", func(t *testing.T) {
		store := openStore(t)

		require.ErrorIs(t, store.SaveAnswer(ctx, 9, "x", domain.Usage{}, time.Now()), domain.ErrChatNotFound)
		require.ErrorIs(t, store.SaveSummary(ctx, 9, domain.SummaryResult{}), domain.ErrChatNotFound)
	})
}

func TestStore_RoomTitle(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	title, err := store.RoomTitle(ctx, 5)
	require.NoError(t, err)
	require.Empty(t, title)

	require.NoError(t, store.SaveRoomTitle(ctx, 5, "Go basics"))
	require.NoError(t, store.SaveRoomTitle(ctx, 5, "Go in depth"))

	title, err = store.RoomTitle(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "Go in depth", title)
}

func TestStore_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chats.db")

	store, err := sqlite.Open(&sqlite.Config{Path: path})
	require.NoError(t, err)
	turn := newTurn(1)
	require.NoError(t, store.CreateChat(ctx, turn))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(&sqlite.Config{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetChat(ctx, turn.ID)
	require.NoError(t, err)
	require.Equal(t, turn.Question, got.Question)
}

func TestStore_Empty(t *testing.T) {
	_, err := sqlite.Open(&sqlite.Config{})

	require.Error(t, err)
}
