package chat

import (
	"context"
	"strings"

	"github.com/notexe/chat-gateway/internal/api"
)

const titlePrompt = "Give a short, descriptive title for this conversation in not more than 5 words.\n\nUser: "

// titleFallbackRunes is how much of the first message becomes the title
// when the provider cannot produce one.
const titleFallbackRunes = 50

// BuildTitleRequest returns the single-message history used to ask a
// provider for a chat title.
func BuildTitleRequest(firstMessage string) []api.Message {
	return []api.Message{
		{Role: api.RoleUser, Content: titlePrompt + firstMessage},
	}
}

// FallbackTitle returns the first 50 characters of the message verbatim.
func FallbackTitle(firstMessage string) string {
	r := []rune(firstMessage)
	if len(r) <= titleFallbackRunes {
		return firstMessage
	}
	return string(r[:titleFallbackRunes])
}

// synthesizeTitle asks the provider for a title and falls back to the
// message prefix on failure or an empty reply.
func (o *Orchestrator) synthesizeTitle(ctx context.Context, p api.Provider, firstMessage string) string {
	res := p.Generate(ctx, BuildTitleRequest(firstMessage), o.opts.Generation)
	if res.Failed() {
		o.logger.Debug("title generation failed, using fallback", "code", string(res.Failure.Code))
		return FallbackTitle(firstMessage)
	}

	title := strings.TrimSpace(res.Content)
	if title == "" {
		return FallbackTitle(firstMessage)
	}
	return title
}
