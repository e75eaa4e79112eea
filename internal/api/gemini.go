package api

import (
	"context"
	"fmt"
	"strings"
)

// geminiEmptyReply is used when no candidate carries text.
const geminiEmptyReply = "Sorry, I couldn't generate a response."

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// GeminiProvider implements Provider for the generateContent API. The
// whole history is flattened into a single prompt.
type GeminiProvider struct {
	base
}

// FormatTranscript flattens a history into one "<Role>: <content>" line per
// message, joined by newlines.
func FormatTranscript(history []Message) string {
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = roleLabel(m.Role) + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}

func roleLabel(role string) string {
	switch role {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	}
	if role == "" {
		return "User"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

// Generate submits the flattened transcript as a single prompt.
func (p *GeminiProvider) Generate(ctx context.Context, history []Message, opts Options) Result {
	opts = opts.withDefaults()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	prompt := FormatTranscript(history)
	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     opts.temperature(),
			MaxOutputTokens: opts.MaxTokens,
		},
	}

	var resp geminiResponse
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(p.baseURL, "/"), p.model)
	headers := map[string]string{"x-goog-api-key": p.apiKey}
	if fail := p.postJSON(ctx, url, headers, req, &resp); fail != nil {
		return p.failure(fail)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	content := sb.String()
	if content == "" {
		content = geminiEmptyReply
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = resp.UsageMetadata.TotalTokenCount
		if tokens == 0 {
			tokens = resp.UsageMetadata.PromptTokenCount + resp.UsageMetadata.CandidatesTokenCount
		}
	}
	if tokens == 0 {
		tokens = estimateTokens(prompt, content)
	}
	return p.success(content, tokens)
}

// ValidateCredentials probes generateContent with a one-message request.
func (p *GeminiProvider) ValidateCredentials(ctx context.Context) bool {
	return validate(ctx, p)
}
