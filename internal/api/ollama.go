package api

import (
	"context"
	"strings"
)

const defaultOllamaURL = "http://localhost:11434"

// ollamaChatRequest represents the Ollama API chat request.
type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// ollamaChatResponse represents the Ollama API chat response.
type ollamaChatResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	DoneReason      string  `json:"done_reason,omitempty"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// OllamaProvider implements Provider for local Ollama models.
type OllamaProvider struct {
	base
}

// Generate sends the history to /api/chat. Roles pass through unchanged.
func (p *OllamaProvider) Generate(ctx context.Context, history []Message, opts Options) Result {
	opts = opts.withDefaults()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	req := ollamaChatRequest{
		Model:    p.model,
		Messages: history,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	}

	var resp ollamaChatResponse
	url := strings.TrimSuffix(p.baseURL, "/") + "/api/chat"
	if fail := p.postJSON(ctx, url, nil, req, &resp); fail != nil {
		return p.failure(fail)
	}

	content := resp.Message.Content
	tokens := resp.PromptEvalCount + resp.EvalCount
	if tokens == 0 {
		tokens = estimateTokens(joinContents(history), content)
	}
	return p.success(content, tokens)
}

// ValidateCredentials checks that the local server answers a chat request.
func (p *OllamaProvider) ValidateCredentials(ctx context.Context) bool {
	return validate(ctx, p)
}
