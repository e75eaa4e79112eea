// Package postgres implements store.Repository on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notexe/chat-gateway/internal/model"
	"github.com/notexe/chat-gateway/internal/store"
)

// Querier abstracts the pgx query methods the store needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, as does a pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides PostgreSQL-backed storage for chats and messages.
type Store struct {
	db    Querier
	close func()
}

var _ store.Repository = (*Store)(nil)

// New wraps an existing query executor.
func New(db Querier) *Store {
	return &Store{db: db, close: func() {}}
}

// Open connects a pool to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	s := &Store{db: pool, close: pool.Close}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool when the store owns one.
func (s *Store) Close() error {
	s.close()
	return nil
}

// GetChat returns a single chat by ID.
func (s *Store) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	var c model.Chat
	err := s.db.QueryRow(ctx, `SELECT id, user_id, title, model_type, language, created_at, updated_at
		FROM chats WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.Title, &c.ModelType, &c.Language, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get chat: %w", err)
	}
	return &c, nil
}

// CreateChat inserts a chat unless the id is already taken.
func (s *Store) CreateChat(ctx context.Context, c *model.Chat) (bool, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	tag, err := s.db.Exec(ctx, `INSERT INTO chats (id, user_id, title, model_type, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		c.ID, c.UserID, c.Title, c.ModelType, c.Language, now, now)
	if err != nil {
		return false, fmt.Errorf("postgres: create chat: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// TouchChat updates the model, language and updated_at of a chat.
func (s *Store) TouchChat(ctx context.Context, id, modelType, language string) error {
	tag, err := s.db.Exec(ctx, `UPDATE chats SET model_type = $1, language = $2, updated_at = NOW() WHERE id = $3`,
		modelType, language, id)
	if err != nil {
		return fmt.Errorf("postgres: touch chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetTitleIfEmpty sets the title of an untitled chat.
func (s *Store) SetTitleIfEmpty(ctx context.Context, id, title string) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE chats SET title = $1 WHERE id = $2 AND title = ''`, title, id)
	if err != nil {
		return false, fmt.Errorf("postgres: set title: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteChat removes a chat; messages follow through ON DELETE CASCADE.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const summarySelect = `SELECT c.id, c.user_id, c.title, c.model_type, c.language, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id),
		COALESCE(lm.content, ''), COALESCE(lm.role, ''), COALESCE(lm.created_at, c.created_at)
	FROM chats c
	LEFT JOIN LATERAL (
		SELECT content, role, created_at FROM messages WHERE chat_id = c.id ORDER BY seq DESC LIMIT 1
	) lm ON TRUE`

// ListChats returns one page of a user's chats, most recently updated first.
func (s *Store) ListChats(ctx context.Context, userID string, limit, offset int) ([]model.ChatSummary, error) {
	rows, err := s.db.Query(ctx, summarySelect+`
	WHERE c.user_id = $1 ORDER BY c.updated_at DESC, c.id LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list chats: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// CountChats returns the number of chats owned by a user.
func (s *Store) CountChats(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM chats WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count chats: %w", err)
	}
	return n, nil
}

// ListChatsSince returns a user's chats updated at or after since.
func (s *Store) ListChatsSince(ctx context.Context, userID string, since time.Time) ([]model.ChatSummary, error) {
	rows, err := s.db.Query(ctx, summarySelect+`
	WHERE c.user_id = $1 AND c.updated_at >= $2 ORDER BY c.updated_at DESC, c.id`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent chats: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// AddMessage appends a message; seq provides the monotonic order.
func (s *Store) AddMessage(ctx context.Context, msg *model.Message) error {
	err := s.db.QueryRow(ctx, `INSERT INTO messages (chat_id, role, content, model_used, tokens_used)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq, created_at`,
		msg.ChatID, msg.Role, msg.Content, msg.ModelUsed, msg.TokensUsed).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: add message: %w", err)
	}
	return nil
}

// ListMessages returns the messages of a chat in creation order. A
// positive limit fetches the newest rows first and re-orders them.
func (s *Store) ListMessages(ctx context.Context, chatID string, limit int) ([]model.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.Query(ctx, `SELECT seq, chat_id, role, content, model_used, tokens_used, created_at
		FROM (
			SELECT seq, chat_id, role, content, model_used, tokens_used, created_at
			FROM messages WHERE chat_id = $1 ORDER BY seq DESC LIMIT $2
		) sub ORDER BY sub.seq ASC`, chatID, limit)
	} else {
		rows, err = s.db.Query(ctx, `SELECT seq, chat_id, role, content, model_used, tokens_used, created_at
		FROM messages WHERE chat_id = $1 ORDER BY seq ASC`, chatID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: list messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.ModelUsed, &m.TokensUsed, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanSummaries(rows pgx.Rows) ([]model.ChatSummary, error) {
	var summaries []model.ChatSummary
	for rows.Next() {
		var cs model.ChatSummary
		var last model.LastMessage

		if err := rows.Scan(&cs.ID, &cs.UserID, &cs.Title, &cs.ModelType, &cs.Language,
			&cs.CreatedAt, &cs.UpdatedAt, &cs.MessageCount,
			&last.Content, &last.Role, &last.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan chat: %w", err)
		}

		if cs.MessageCount > 0 {
			cs.LastMessage = &last
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}
