package chat

import (
	"github.com/notexe/chat-gateway/internal/api"
	"github.com/notexe/chat-gateway/internal/model"
)

// toHistory keeps the role and content of stored messages, in order.
func toHistory(messages []model.Message) []api.Message {
	history := make([]api.Message, len(messages))
	for i, m := range messages {
		history[i] = api.Message{Role: m.Role, Content: m.Content}
	}
	return history
}
