package api

import (
	"context"
	"strings"
)

const anthropicVersion = "2023-06-01"

// anthropicEmptyReply is used when the API answers without any text block.
const anthropicEmptyReply = "No response generated"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	base
}

// FoldSystemMessages converts a history to the user/assistant-only form the
// Messages API accepts: a system message becomes a user message prefixed
// with "[System]: ".
func FoldSystemMessages(history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case RoleSystem:
			out = append(out, Message{Role: RoleUser, Content: "[System]: " + m.Content})
		case RoleAssistant:
			out = append(out, Message{Role: RoleAssistant, Content: m.Content})
		default:
			out = append(out, Message{Role: RoleUser, Content: m.Content})
		}
	}
	return out
}

// Generate sends the folded history to /messages.
func (p *AnthropicProvider) Generate(ctx context.Context, history []Message, opts Options) Result {
	opts = opts.withDefaults()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	folded := FoldSystemMessages(history)
	messages := make([]anthropicMessage, len(folded))
	for i, m := range folded {
		messages[i] = anthropicMessage{Role: m.Role, Content: m.Content}
	}

	req := anthropicRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.temperature(),
	}
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	url := strings.TrimSuffix(p.baseURL, "/") + "/messages"
	if fail := p.postJSON(ctx, url, headers, req, &resp); fail != nil {
		return p.failure(fail)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := sb.String()
	if content == "" {
		content = anthropicEmptyReply
	}

	tokens := resp.Usage.InputTokens + resp.Usage.OutputTokens
	if tokens == 0 {
		tokens = estimateTokens(joinContents(folded), content)
	}
	return p.success(content, tokens)
}

// ValidateCredentials probes the Messages API with a one-message request.
func (p *AnthropicProvider) ValidateCredentials(ctx context.Context) bool {
	return validate(ctx, p)
}
