// Package store defines the persistence contract for chats and messages.
// Implementations live in the sqlite and postgres subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/notexe/chat-gateway/internal/model"
)

// ErrNotFound is returned when a chat does not exist.
var ErrNotFound = errors.New("not found")

// Repository persists chats and their messages.
type Repository interface {
	// GetChat returns ErrNotFound when no chat has the given id.
	GetChat(ctx context.Context, id string) (*model.Chat, error)

	// CreateChat inserts the chat unless one with the same id exists and
	// reports whether it was inserted. CreatedAt and UpdatedAt are set.
	CreateChat(ctx context.Context, chat *model.Chat) (bool, error)

	// TouchChat records the model and language of the latest turn and
	// bumps updated_at.
	TouchChat(ctx context.Context, id, modelType, language string) error

	// SetTitleIfEmpty stores title only when the chat has none yet and
	// reports whether it did.
	SetTitleIfEmpty(ctx context.Context, id, title string) (bool, error)

	// DeleteChat removes a chat and all of its messages.
	DeleteChat(ctx context.Context, id string) error

	ListChats(ctx context.Context, userID string, limit, offset int) ([]model.ChatSummary, error)
	CountChats(ctx context.Context, userID string) (int, error)
	ListChatsSince(ctx context.Context, userID string, since time.Time) ([]model.ChatSummary, error)

	// AddMessage appends a message and sets its ID and CreatedAt.
	AddMessage(ctx context.Context, msg *model.Message) error

	// ListMessages returns messages in creation order. A positive limit
	// keeps only the most recent limit messages.
	ListMessages(ctx context.Context, chatID string, limit int) ([]model.Message, error)

	Close() error
}
