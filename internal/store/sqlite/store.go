// Package sqlite persists chat turns in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/observability"
)

// Config configures the SQLite store.
type Config struct {
	Path        string        `env:"SQLITE_PATH"         envDefault:"ttibu.db"`
	BusyTimeout time.Duration `env:"SQLITE_BUSY_TIMEOUT" envDefault:"5s"`
}

// Store implements domain.ChatStore.
type Store struct {
	db *sql.DB

	createStmt  *sql.Stmt
	getStmt     *sql.Stmt
	answerStmt  *sql.Stmt
	summaryStmt *sql.Stmt
	titleStmt   *sql.Stmt
}

// Open opens the database, creating the schema when needed (DI constructor).
func Open(cfg *Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, busy.Milliseconds())
	if strings.HasPrefix(cfg.Path, ":memory:") || strings.HasPrefix(cfg.Path, "file:") {
		dsn = cfg.Path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and :memory: databases live per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		summary TEXT,
		keywords TEXT NOT NULL DEFAULT '[]',
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		model TEXT NOT NULL,
		provider TEXT NOT NULL,
		answered_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chats_room ON chats(room_id);

	CREATE TABLE IF NOT EXISTS rooms (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.createStmt, err = s.db.Prepare(`
		INSERT INTO chats (room_id, question, status, keywords, model, provider, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare create statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT id, room_id, question, answer, status, summary, keywords,
			prompt_tokens, completion_tokens, total_tokens,
			model, provider, answered_at, created_at, updated_at
		FROM chats
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.answerStmt, err = s.db.Prepare(`
		UPDATE chats SET
			answer = ?, status = ?,
			prompt_tokens = ?, completion_tokens = ?, total_tokens = ?,
			answered_at = ?, updated_at = ?
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare answer statement: %w", err)
	}

	s.summaryStmt, err = s.db.Prepare(`
		UPDATE chats SET summary = ?, keywords = ?, status = ?, updated_at = ?
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare summary statement: %w", err)
	}

	s.titleStmt, err = s.db.Prepare(`
		INSERT INTO rooms (id, title, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare title statement: %w", err)
	}

	return nil
}

// CreateChat inserts turn and sets its ID.
func (s *Store) CreateChat(ctx context.Context, turn *domain.ChatTurn) error {
	if turn == nil {
		return errors.New("chat turn cannot be nil")
	}

	keywords, err := encodeKeywords(turn.Keywords)
	if err != nil {
		return err
	}

	res, err := s.createStmt.ExecContext(ctx,
		turn.RoomID,
		turn.Question,
		string(turn.Status),
		keywords,
		turn.Model,
		turn.ProviderCode,
		turn.CreatedAt.UnixNano(),
		turn.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read chat id: %w", err)
	}
	turn.ID = id

	observability.FromContext(ctx).Debug("chat created", observability.Int64("chat_id", id))
	return nil
}

// GetChat loads a turn by id.
func (s *Store) GetChat(ctx context.Context, chatID int64) (*domain.ChatTurn, error) {
	var (
		turn       domain.ChatTurn
		status     string
		summary    sql.NullString
		keywords   string
		answeredAt sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)

	err := s.getStmt.QueryRowContext(ctx, chatID).Scan(
		&turn.ID,
		&turn.RoomID,
		&turn.Question,
		&turn.Answer,
		&status,
		&summary,
		&keywords,
		&turn.Usage.PromptTokens,
		&turn.Usage.CompletionTokens,
		&turn.Usage.TotalTokens,
		&turn.Model,
		&turn.ProviderCode,
		&answeredAt,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %d: %w", chatID, domain.ErrChatNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	turn.Status = domain.ChatStatus(status)
	if summary.Valid {
		turn.Summary = &summary.String
	}
	if err := json.Unmarshal([]byte(keywords), &turn.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}
	if answeredAt.Valid {
		at := time.Unix(0, answeredAt.Int64).UTC()
		turn.AnsweredAt = &at
	}
	turn.CreatedAt = time.Unix(0, createdAt).UTC()
	turn.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &turn, nil
}

// SaveAnswer stores the final answer and moves the turn to ANSWER.
func (s *Store) SaveAnswer(
	ctx context.Context,
	chatID int64,
	answer string,
	usage domain.Usage,
	answeredAt time.Time,
) error {
	res, err := s.answerStmt.ExecContext(ctx,
		answer,
		string(domain.StatusAnswer),
		usage.PromptTokens,
		usage.CompletionTokens,
		usage.TotalTokens,
		answeredAt.UnixNano(),
		time.Now().UTC().UnixNano(),
		chatID,
	)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return requireRow(res, chatID)
}

// SaveSummary stores the summary result and moves the turn to SUMMARY_KEYWORDS.
func (s *Store) SaveSummary(ctx context.Context, chatID int64, result domain.SummaryResult) error {
	keywords, err := encodeKeywords(result.Keywords)
	if err != nil {
		return err
	}

	var summary sql.NullString
	if result.Summary != nil {
		summary = sql.NullString{String: *result.Summary, Valid: true}
	}

	res, err := s.summaryStmt.ExecContext(ctx,
		summary,
		keywords,
		string(domain.StatusSummaryKeywords),
		time.Now().UTC().UnixNano(),
		chatID,
	)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return requireRow(res, chatID)
}

// SaveRoomTitle upserts the title of a room.
func (s *Store) SaveRoomTitle(ctx context.Context, roomID int64, title string) error {
	if _, err := s.titleStmt.ExecContext(ctx, roomID, title, time.Now().UTC().UnixNano()); err != nil {
		return fmt.Errorf("failed to save room title: %w", err)
	}
	return nil
}

// RoomTitle returns the stored title of a room.
func (s *Store) RoomTitle(ctx context.Context, roomID int64) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM rooms WHERE id = ?`, roomID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load room title: %w", err)
	}
	return title, nil
}

// Close releases the statements and the database.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.createStmt, s.getStmt, s.answerStmt, s.summaryStmt, s.titleStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return s.db.Close()
}

func requireRow(res sql.Result, chatID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("chat %d: %w", chatID, domain.ErrChatNotFound)
	}
	return nil
}

func encodeKeywords(keywords []string) (string, error) {
	if keywords == nil {
		keywords = []string{}
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return "", fmt.Errorf("failed to encode keywords: %w", err)
	}
	return string(data), nil
}
