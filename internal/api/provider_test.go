package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/chat-gateway/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProvider(t *testing.T, vendor, logical, baseURL string) Provider {
	t.Helper()
	p, err := NewProvider(vendor, logical, Settings{
		Credentials: config.ProviderConfig{APIKey: "test-key", BaseURL: baseURL, Timeout: 5},
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	return p
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

var hello = []Message{{Role: RoleUser, Content: "hi"}}

func TestFormatTranscript(t *testing.T) {
	got := FormatTranscript([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, "User: hi\nAssistant: hello", got)

	assert.Equal(t, "System: be terse", FormatTranscript([]Message{{Role: RoleSystem, Content: "be terse"}}))
	assert.Equal(t, "", FormatTranscript(nil))
}

func TestFoldSystemMessages(t *testing.T) {
	got := FoldSystemMessages([]Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hi"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, RoleUser, got[0].Role)
	assert.Contains(t, got[0].Content, "[System]:")
	assert.Contains(t, got[0].Content, "be terse")
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, got[1])
}

func TestOpenAICompatibleSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, "llama-3.3-70b-versatile", body["model"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","model":"llama-3.3-70b-versatile",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Hi there"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, config.VendorGroq, "groq", srv.URL)
	res := p.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "Hello"},
	}, Options{})

	require.False(t, res.Failed(), "unexpected failure: %v", res.Failure)
	assert.Equal(t, "Hi there", res.Content)
	assert.Equal(t, 5, res.TokensUsed)
	assert.Equal(t, "llama-3.3-70b-versatile", res.ModelUsed)
	assert.Equal(t, "Groq", res.Provider)
}

func TestOpenAICompatibleFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      FailureCode
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, FailureHTTP, true},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, FailureAuth, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, FailureRateLimit, true},
		{"malformed", http.StatusOK, `not json`, FailureMalformed, false},
		{"no choices", http.StatusOK, `{"id":"x","choices":[]}`, FailureMalformed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			p := newTestProvider(t, config.VendorOpenAI, "gpt-4", srv.URL)
			res := p.Generate(context.Background(), hello, Options{})

			require.True(t, res.Failed())
			assert.Equal(t, tt.code, res.Failure.Code)
			assert.Equal(t, tt.retryable, res.Failure.Retryable())
			assert.Equal(t, FallbackContent, res.Content)
			assert.Zero(t, res.TokensUsed)
		})
	}
}

func TestAnthropicGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		body := decodeBody(t, r)
		assert.Equal(t, "claude-3-haiku-20240307", body["model"])
		assert.EqualValues(t, 1000, body["max_tokens"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		first := msgs[0].(map[string]any)
		assert.Equal(t, "user", first["role"])
		assert.Equal(t, "[System]: be terse", first["content"])

		io.WriteString(w, `{"id":"msg_1","model":"claude-3-haiku-20240307",
			"content":[{"type":"text","text":"Sure."}],
			"usage":{"input_tokens":7,"output_tokens":2}}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, config.VendorAnthropic, "claude-haiku", srv.URL)
	res := p.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hi"},
	}, Options{})

	require.False(t, res.Failed())
	assert.Equal(t, "Sure.", res.Content)
	assert.Equal(t, 9, res.TokensUsed)
	assert.Equal(t, "Anthropic Claude", res.Provider)
}

func TestAnthropicEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"msg_1","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, config.VendorAnthropic, "claude", srv.URL)
	res := p.Generate(context.Background(), hello, Options{})

	require.False(t, res.Failed())
	assert.Equal(t, anthropicEmptyReply, res.Content)
}

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		body := decodeBody(t, r)
		contents := body["contents"].([]any)
		require.Len(t, contents, 1)
		parts := contents[0].(map[string]any)["parts"].([]any)
		assert.Equal(t, "User: hi\nAssistant: hello\nUser: again", parts[0].(map[string]any)["text"])

		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello back"}]}}]}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, config.VendorGemini, "gemini", srv.URL)
	history := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "again"},
	}
	res := p.Generate(context.Background(), history, Options{})

	require.False(t, res.Failed())
	assert.Equal(t, "Hello back", res.Content)
	// no usageMetadata: floor(runes(prompt + reply) / 4)
	want := (len("User: hi\nAssistant: hello\nUser: again") + len("Hello back")) / 4
	assert.Equal(t, want, res.TokensUsed)
}

func TestGeminiUsageAndEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":0,"totalTokenCount":4}}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, config.VendorGemini, "gemini", srv.URL)
	res := p.Generate(context.Background(), hello, Options{})

	require.False(t, res.Failed())
	assert.Equal(t, geminiEmptyReply, res.Content)
	assert.Equal(t, 4, res.TokensUsed)
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, config.VendorGemini, "gemini", srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := p.Generate(ctx, hello, Options{})
	require.True(t, res.Failed())
	assert.Equal(t, FailureTimeout, res.Failure.Code)
	assert.True(t, res.Failure.Retryable())
}

func TestGenerateNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := newTestProvider(t, config.VendorAnthropic, "claude", url)
	res := p.Generate(context.Background(), hello, Options{})

	require.True(t, res.Failed())
	assert.Equal(t, FailureNetwork, res.Failure.Code)
	assert.Equal(t, FallbackContent, res.Content)
}

func TestDeepSeekCustomBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, "deepseek-chat", body["model"])
		assert.Equal(t, false, body["stream"])

		io.WriteString(w, `{"id":"d1","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}],
			"usage":{"prompt_tokens":2,"completion_tokens":1}}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, config.VendorDeepSeek, "deepseek", srv.URL)
	res := p.Generate(context.Background(), hello, Options{})

	require.False(t, res.Failed(), "unexpected failure: %v", res.Failure)
	assert.Equal(t, "ok", res.Content)
	assert.Equal(t, 3, res.TokensUsed)
	assert.Equal(t, "DeepSeek", res.Provider)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestDeepSeekNonChatModelsBypassSDK(t *testing.T) {
	var gotURL, gotModel string
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		gotModel, _ = decodeBody(t, r)["model"].(string)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body: io.NopCloser(strings.NewReader(`{"id":"d2","choices":[{"message":{"role":"assistant","content":"code"}}],
				"usage":{"total_tokens":7}}`)),
			Request: r,
		}, nil
	})}
	settings := Settings{
		Credentials: config.ProviderConfig{APIKey: "test-key", BaseURL: "https://api.deepseek.com/v1"},
		Logger:      quietLogger(),
		HTTPClient:  client,
	}

	chatModel, err := NewProvider(config.VendorDeepSeek, "deepseek", settings)
	require.NoError(t, err)
	assert.NotNil(t, chatModel.(*DeepSeekProvider).sdk)

	coder, err := NewProvider(config.VendorDeepSeek, "deepseek-coder", settings)
	require.NoError(t, err)
	assert.Nil(t, coder.(*DeepSeekProvider).sdk)

	res := coder.Generate(context.Background(), hello, Options{})
	require.False(t, res.Failed(), "unexpected failure: %v", res.Failure)
	assert.Equal(t, "code", res.Content)
	assert.Equal(t, 7, res.TokensUsed)
	assert.Equal(t, "https://api.deepseek.com/v1/chat/completions", gotURL)
	assert.Equal(t, "deepseek-coder", gotModel)
}

func TestFailureFromSDK(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      FailureCode
		status    int
		retryable bool
	}{
		{"bad key", errors.New("err: Authentication Fails (no such user); http_status_code=401"), FailureAuth, 401, false},
		{"rate limit", errors.New("err: Rate limit reached; http_status_code=429"), FailureRateLimit, 429, true},
		{"unparsed body", errors.New(`err: {"raw":"vendor body"}; http_status_code=500`), FailureHTTP, 500, true},
		{"rejected model", errors.New(`err: model should be "deepseek-chat"`), FailureHTTP, 400, false},
		{"empty body", errors.New("err: service unavailable"), FailureHTTP, 503, true},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), FailureTimeout, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := failureFromSDK(tt.err)
			assert.Equal(t, tt.code, f.Code)
			assert.Equal(t, tt.status, f.Status)
			assert.Equal(t, tt.retryable, f.Retryable())
			assert.NotContains(t, f.Detail, "err:")
			assert.NotContains(t, f.Detail, "vendor body")
		})
	}
}

func TestExplicitZeroTemperature(t *testing.T) {
	options := make(chan map[string]any, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		opts, _ := body["options"].(map[string]any)
		options <- opts
		io.WriteString(w, `{"model":"llama3.2","message":{"role":"assistant","content":"ok"},"done":true}`)
	}))
	defer srv.Close()

	p, err := NewProvider(config.VendorOllama, "llama", Settings{
		Credentials: config.ProviderConfig{BaseURL: srv.URL},
		Logger:      quietLogger(),
	})
	require.NoError(t, err)

	require.False(t, p.Generate(context.Background(), hello, Options{Temperature: Temperature(0)}).Failed())
	got := <-options
	require.Contains(t, got, "temperature")
	assert.Equal(t, 0.0, got["temperature"])

	require.False(t, p.Generate(context.Background(), hello, Options{}).Failed())
	assert.Equal(t, 0.7, (<-options)["temperature"])
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		io.WriteString(w, `{"model":"llama3.2","message":{"role":"assistant","content":"local"},"done":true,
			"prompt_eval_count":6,"eval_count":4}`)
	}))
	defer srv.Close()

	p, err := NewProvider(config.VendorOllama, "llama", Settings{
		Credentials: config.ProviderConfig{BaseURL: srv.URL},
		Logger:      quietLogger(),
	})
	require.NoError(t, err)

	res := p.Generate(context.Background(), hello, Options{})
	require.False(t, res.Failed())
	assert.Equal(t, "local", res.Content)
	assert.Equal(t, 10, res.TokensUsed)
	assert.Equal(t, "llama3.2", p.Model())
}

func TestValidateCredentials(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		io.WriteString(w, `{"content":[{"type":"text","text":"Hi"}]}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, config.VendorAnthropic, "claude", srv.URL)
	assert.True(t, p.ValidateCredentials(context.Background()))

	status.Store(http.StatusUnauthorized)
	assert.False(t, p.ValidateCredentials(context.Background()))
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(config.VendorGroq, "groq", Settings{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewProvider("mistral", "mistral", Settings{Credentials: config.ProviderConfig{APIKey: "k"}})
	assert.Error(t, err)

	p := newTestProvider(t, config.VendorOpenAI, "gpt-4", "http://example.invalid")
	assert.Equal(t, "gpt-4", p.Model())
	assert.Equal(t, "OpenAI", p.Name())
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		vendor, logical, want string
	}{
		{config.VendorGemini, "gemini", "gemini-2.5-flash"},
		{config.VendorOpenAI, "gpt-4", "gpt-4"},
		{config.VendorOpenAI, "chatgpt", "gpt-3.5-turbo"},
		{config.VendorDeepSeek, "deepseek", "deepseek-chat"},
		{config.VendorAnthropic, "claude", "claude-3-sonnet-20240229"},
		{config.VendorAnthropic, "claude-opus", "claude-3-opus-20240229"},
		{config.VendorAnthropic, "claude-unknown", "claude-3-sonnet-20240229"},
		{config.VendorGroq, "groq", "llama-3.3-70b-versatile"},
		{config.VendorOllama, "llama", "llama3.2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveModel(tt.vendor, tt.logical), "%s/%s", tt.vendor, tt.logical)
	}
}
