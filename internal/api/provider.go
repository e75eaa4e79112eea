package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Provider is the uniform interface over the supported chat vendors.
// Implementations are stateless across calls and safe for concurrent use.
type Provider interface {
	// Generate sends the ordered history and returns the reply. Vendor
	// failures are reported through Result.Failure, never as a panic.
	Generate(ctx context.Context, history []Message, opts Options) Result

	// ValidateCredentials issues a minimal request and reports whether
	// the vendor accepted it.
	ValidateCredentials(ctx context.Context) bool

	// Name returns the vendor label (e.g. "Google Gemini", "Groq").
	Name() string

	// Model returns the concrete vendor model id.
	Model() string
}

// base carries what every vendor client needs: credentials, endpoint,
// the concrete model and the per-call timeout.
type base struct {
	label   string
	model   string
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func (b *base) Name() string  { return b.label }
func (b *base) Model() string { return b.model }

// withTimeout bounds a single vendor call.
func (b *base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

func (b *base) success(content string, tokens int) Result {
	return Result{
		Content:    content,
		TokensUsed: tokens,
		ModelUsed:  b.model,
		Provider:   b.label,
	}
}

func (b *base) failure(f *Failure) Result {
	b.logger.Warn("provider call failed",
		"model", b.model,
		"code", string(f.Code),
		"status", f.Status,
		"detail", f.Detail,
	)
	return Result{
		Content:   FallbackContent,
		ModelUsed: b.model,
		Provider:  b.label,
		Failure:   f,
	}
}

// validate runs the shared credential probe: a single "Hello" turn.
func validate(ctx context.Context, p Provider) bool {
	res := p.Generate(ctx, []Message{{Role: RoleUser, Content: "Hello"}}, Options{MaxTokens: 16})
	return !res.Failed()
}

// estimateTokens approximates usage when the vendor does not report it.
func estimateTokens(prompt, reply string) int {
	return (utf8.RuneCountInString(prompt) + utf8.RuneCountInString(reply)) / 4
}

func joinContents(history []Message) string {
	parts := make([]string, len(history))
	for i, m := range history {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}
