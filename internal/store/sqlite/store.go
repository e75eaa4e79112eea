// Package sqlite implements store.Repository on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"github.com/notexe/chat-gateway/internal/model"
	"github.com/notexe/chat-gateway/internal/store"
)

// timeLayout is fixed width so text comparison matches time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store provides SQLite-backed storage for chats and messages.
type Store struct {
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

// Open opens (or creates) the SQLite database at dbPath and ensures the
// schema exists.
func Open(dbPath string) (*Store, error) {
	dsn := "file:" + dbPath + "?" + url.Values{
		"_pragma": []string{"foreign_keys(1)", "busy_timeout(5000)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chats (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			title       TEXT NOT NULL DEFAULT '',
			model_type  TEXT NOT NULL DEFAULT 'gemini',
			language    TEXT NOT NULL DEFAULT 'en',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chats_user_updated ON chats (user_id, updated_at);
		CREATE TABLE IF NOT EXISTS messages (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id     TEXT    NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			role        TEXT    NOT NULL,
			content     TEXT    NOT NULL,
			model_used  TEXT    NOT NULL DEFAULT '',
			tokens_used INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id, id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// GetChat returns a single chat by ID.
func (s *Store) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, model_type, language, created_at, updated_at
		FROM chats WHERE id = ?
	`, id)

	var c model.Chat
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.ModelType, &c.Language, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// CreateChat inserts a chat unless the id is already taken.
func (s *Store) CreateChat(ctx context.Context, c *model.Chat) (bool, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (id, user_id, title, model_type, language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, c.ID, c.UserID, c.Title, c.ModelType, c.Language, formatTime(now), formatTime(now))
	if err != nil {
		return false, fmt.Errorf("failed to insert chat: %w", err)
	}

	n, _ := result.RowsAffected()
	return n == 1, nil
}

// TouchChat updates the model, language and updated_at of a chat.
func (s *Store) TouchChat(ctx context.Context, id, modelType, language string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE chats SET model_type = ?, language = ?, updated_at = ? WHERE id = ?
	`, modelType, language, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetTitleIfEmpty sets the title of an untitled chat.
func (s *Store) SetTitleIfEmpty(ctx context.Context, id, title string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE chats SET title = ? WHERE id = ? AND title = ''
	`, title, id)
	if err != nil {
		return false, fmt.Errorf("failed to set title: %w", err)
	}

	n, _ := result.RowsAffected()
	return n == 1, nil
}

// DeleteChat removes a chat and its messages.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

const summarySelect = `
	SELECT c.id, c.user_id, c.title, c.model_type, c.language, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id),
		lm.content, lm.role, lm.created_at
	FROM chats c
	LEFT JOIN messages lm ON lm.id = (SELECT MAX(id) FROM messages WHERE chat_id = c.id)
`

// ListChats returns one page of a user's chats, most recently updated first.
func (s *Store) ListChats(ctx context.Context, userID string, limit, offset int) ([]model.ChatSummary, error) {
	rows, err := s.db.QueryContext(ctx, summarySelect+`
		WHERE c.user_id = ? ORDER BY c.updated_at DESC, c.id LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// CountChats returns the number of chats owned by a user.
func (s *Store) CountChats(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chats: %w", err)
	}
	return n, nil
}

// ListChatsSince returns a user's chats updated at or after since.
func (s *Store) ListChatsSince(ctx context.Context, userID string, since time.Time) ([]model.ChatSummary, error) {
	rows, err := s.db.QueryContext(ctx, summarySelect+`
		WHERE c.user_id = ? AND c.updated_at >= ? ORDER BY c.updated_at DESC, c.id
	`, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list recent chats: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// AddMessage appends a message to a chat.
func (s *Store) AddMessage(ctx context.Context, msg *model.Message) error {
	msg.CreatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, role, content, model_used, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ChatID, msg.Role, msg.Content, msg.ModelUsed, msg.TokensUsed, formatTime(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted ID: %w", err)
	}
	msg.ID = id
	return nil
}

// ListMessages returns the messages of a chat in creation order.
func (s *Store) ListMessages(ctx context.Context, chatID string, limit int) ([]model.Message, error) {
	var rows *sql.Rows
	var err error

	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, chat_id, role, content, model_used, tokens_used, created_at FROM (
				SELECT id, chat_id, role, content, model_used, tokens_used, created_at
				FROM messages WHERE chat_id = ? ORDER BY id DESC LIMIT ?
			) ORDER BY id ASC
		`, chatID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, chat_id, role, content, model_used, tokens_used, created_at
			FROM messages WHERE chat_id = ? ORDER BY id ASC
		`, chatID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.ModelUsed, &m.TokensUsed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// scanSummaries reads rows produced by summarySelect.
func scanSummaries(rows *sql.Rows) ([]model.ChatSummary, error) {
	var summaries []model.ChatSummary
	for rows.Next() {
		var cs model.ChatSummary
		var createdAt, updatedAt string
		var lastContent, lastRole, lastAt sql.NullString

		if err := rows.Scan(&cs.ID, &cs.UserID, &cs.Title, &cs.ModelType, &cs.Language,
			&createdAt, &updatedAt, &cs.MessageCount,
			&lastContent, &lastRole, &lastAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}

		cs.CreatedAt = parseTime(createdAt)
		cs.UpdatedAt = parseTime(updatedAt)
		if lastContent.Valid {
			cs.LastMessage = &model.LastMessage{
				Content:   lastContent.String,
				Role:      lastRole.String,
				CreatedAt: parseTime(lastAt.String),
			}
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}
