package api

import (
	"context"
	"errors"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider serves every OpenAI-compatible chat completions endpoint.
// It backs both OpenAI and Groq; roles pass through unchanged.
type OpenAIProvider struct {
	base
	api *openai.Client
}

func newOpenAIProvider(b base) *OpenAIProvider {
	cfg := openai.DefaultConfig(b.apiKey)
	if b.baseURL != "" {
		cfg.BaseURL = b.baseURL
	}
	cfg.HTTPClient = b.client

	return &OpenAIProvider{
		base: b,
		api:  openai.NewClientWithConfig(cfg),
	}
}

// Generate sends the history as a chat completion request.
func (p *OpenAIProvider) Generate(ctx context.Context, history []Message, opts Options) Result {
	opts = opts.withDefaults()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	// go-openai omits a zero temperature, which the vendor reads as 1.
	temp := float32(opts.temperature())
	if temp == 0 {
		temp = math.SmallestNonzeroFloat32
	}

	resp, err := p.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: temp,
	})
	if err != nil {
		return p.failure(classifyOpenAIError(err))
	}

	if len(resp.Choices) == 0 {
		return p.failure(malformed("response contained no choices"))
	}

	content := resp.Choices[0].Message.Content
	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		tokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	}
	if tokens == 0 {
		tokens = estimateTokens(joinContents(history), content)
	}

	return p.success(content, tokens)
}

// ValidateCredentials probes the endpoint with a one-message request.
func (p *OpenAIProvider) ValidateCredentials(ctx context.Context) bool {
	return validate(ctx, p)
}

func classifyOpenAIError(err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Code: FailureTimeout, Detail: "request timed out"}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return failureFromStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return failureFromStatus(reqErr.HTTPStatusCode, "")
	}

	return failureFromError(err)
}
