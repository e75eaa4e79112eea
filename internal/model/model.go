// Package model holds the persisted conversation types.
package model

import "time"

// Languages a chat can be conducted in.
const (
	LanguageEnglish = "en"
	LanguageArabic  = "ar"
)

// Chat is a conversation owned by exactly one user.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	ModelType string    `json:"model_type"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one entry of a chat. IDs increase strictly within a chat and
// define the conversation order.
type Message struct {
	ID         int64     `json:"id"`
	ChatID     string    `json:"chat_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	ModelUsed  string    `json:"model_used,omitempty"`
	TokensUsed int       `json:"tokens_used,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// LastMessage is the preview shown in chat listings.
type LastMessage struct {
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSummary is a chat as it appears in listings.
type ChatSummary struct {
	Chat
	MessageCount int          `json:"message_count"`
	LastMessage  *LastMessage `json:"last_message"`
}
