package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-deepseek/deepseek"
	"github.com/go-deepseek/deepseek/request"
)

// defaultDeepSeekURL is the public endpoint the SDK talks to. Any other
// configured base URL goes through the direct HTTP path.
const defaultDeepSeekURL = "https://api.deepseek.com"

// sdkStatusPattern extracts the vendor status from SDK errors, which arrive
// as "err: <message>; http_status_code=<status>".
var sdkStatusPattern = regexp.MustCompile(`http_status_code=(\d+)`)

// deepseekChatRequest mirrors the chat completions body for the direct path.
type deepseekChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float32  `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

// deepseekChatResponse mirrors the API response structure
type deepseekChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// DeepSeekProvider implements Provider for the DeepSeek API.
type DeepSeekProvider struct {
	base
	sdk deepseek.Client
}

func newDeepSeekProvider(b base) (*DeepSeekProvider, error) {
	p := &DeepSeekProvider{base: b}
	if p.usesSDK() {
		client, err := deepseek.NewClient(b.apiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create DeepSeek client: %w", err)
		}
		p.sdk = client
	}
	return p, nil
}

// usesSDK reports whether calls go through the SDK. The SDK only serves
// deepseek-chat on the public endpoint; every other model or endpoint uses
// the direct HTTP path.
func (p *DeepSeekProvider) usesSDK() bool {
	if p.model != deepseek.DEEPSEEK_CHAT_MODEL {
		return false
	}
	u := strings.TrimSuffix(strings.TrimSuffix(p.baseURL, "/"), "/v1")
	return u == "" || u == defaultDeepSeekURL
}

// Generate sends the history to DeepSeek. Roles pass through unchanged.
func (p *DeepSeekProvider) Generate(ctx context.Context, history []Message, opts Options) Result {
	opts = opts.withDefaults()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	temp := float32(opts.temperature())

	var (
		content string
		tokens  int
		fail    *Failure
	)
	if p.sdk != nil {
		content, tokens, fail = p.generateSDK(ctx, history, opts.MaxTokens, &temp)
	} else {
		content, tokens, fail = p.generateHTTP(ctx, history, opts.MaxTokens, &temp)
	}
	if fail != nil {
		return p.failure(fail)
	}

	if tokens == 0 {
		tokens = estimateTokens(joinContents(history), content)
	}
	return p.success(content, tokens)
}

// generateSDK uses the DeepSeek SDK against the public endpoint.
func (p *DeepSeekProvider) generateSDK(ctx context.Context, history []Message, maxTokens int, temp *float32) (string, int, *Failure) {
	messages := make([]*request.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, &request.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := p.sdk.CallChatCompletionsChat(ctx, &request.ChatCompletionsRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temp,
		Stream:      false,
	})
	if err != nil {
		p.logger.Debug("deepseek sdk error", "error", truncate(err.Error(), 512))
		return "", 0, failureFromSDK(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", 0, malformed("response contained no choices")
	}

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
		if tokens == 0 {
			tokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
		}
	}
	return resp.Choices[0].Message.Content, tokens, nil
}

// failureFromSDK classifies SDK errors. Vendor HTTP failures only carry
// their status in the error text; the rest of that text may hold the raw
// vendor body and is not kept.
func failureFromSDK(err error) *Failure {
	if m := sdkStatusPattern.FindStringSubmatch(err.Error()); m != nil {
		if status, convErr := strconv.Atoi(m[1]); convErr == nil {
			return failureFromStatus(status, "")
		}
	}

	var netErr net.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		errors.As(err, &netErr), errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return failureFromError(err)
	case err.Error() == "err: service unavailable":
		return failureFromStatus(http.StatusServiceUnavailable, "")
	default:
		// Request validation inside the SDK; nothing was sent.
		return &Failure{Code: FailureHTTP, Status: http.StatusBadRequest, Detail: "request rejected by the DeepSeek client"}
	}
}

// generateHTTP makes a direct call, used for custom base URLs and for models
// the SDK does not serve.
func (p *DeepSeekProvider) generateHTTP(ctx context.Context, history []Message, maxTokens int, temp *float32) (string, int, *Failure) {
	chatReq := deepseekChatRequest{
		Model:       p.model,
		Messages:    history,
		MaxTokens:   maxTokens,
		Temperature: temp,
		Stream:      false,
	}

	var resp deepseekChatResponse
	baseURL := p.baseURL
	if baseURL == "" {
		baseURL = defaultDeepSeekURL
	}
	url := strings.TrimSuffix(baseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if fail := p.postJSON(ctx, url, headers, chatReq, &resp); fail != nil {
		return "", 0, fail
	}
	if len(resp.Choices) == 0 {
		return "", 0, malformed("response contained no choices")
	}

	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		tokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	}
	return resp.Choices[0].Message.Content, tokens, nil
}

// ValidateCredentials probes DeepSeek with a one-message request.
func (p *DeepSeekProvider) ValidateCredentials(ctx context.Context) bool {
	return validate(ctx, p)
}
