package registry

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/chat-gateway/internal/api"
	"github.com/notexe/chat-gateway/internal/api/apitest"
	"github.com/notexe/chat-gateway/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Providers: map[string]config.ProviderConfig{
			config.VendorGroq:      {APIKey: "gsk", Models: []string{"groq"}},
			config.VendorAnthropic: {APIKey: "sk-ant", Models: []string{"claude", "claude-haiku"}},
			config.VendorOpenAI:    {Models: []string{"gpt-4"}}, // no key
		},
	}
}

func TestNewRegistersConfiguredVendors(t *testing.T) {
	r := New(testConfig(), quietLogger())

	assert.Equal(t, []string{"claude", "claude-haiku", "groq"}, r.Names())
	assert.True(t, r.IsAvailable("groq"))
	assert.False(t, r.IsAvailable("gpt-4"))

	p, err := r.Resolve("claude-haiku")
	require.NoError(t, err)
	assert.Equal(t, "claude-3-haiku-20240307", p.Model())
	assert.Equal(t, "Anthropic Claude", p.Name())
}

func TestResolveUnknownModel(t *testing.T) {
	built := 0
	r := NewFromRegistrations(quietLogger(), Registration{
		Name:   "groq",
		Vendor: config.VendorGroq,
		Build: func() (api.Provider, error) {
			built++
			return &apitest.Stub{Label: "Groq"}, nil
		},
	})

	_, err := r.Resolve("gpt-4")
	assert.ErrorIs(t, err, ErrModelNotSupported)
	assert.Zero(t, built, "no client may be built for an unsupported name")
}

func TestListAvailable(t *testing.T) {
	r := NewFromRegistrations(quietLogger(),
		Registration{Name: "gemini", Vendor: config.VendorGemini, Build: func() (api.Provider, error) {
			return &apitest.Stub{Label: "Google Gemini"}, nil
		}},
		Registration{Name: "broken", Vendor: config.VendorOpenAI, Build: func() (api.Provider, error) {
			return nil, errors.New("boom")
		}},
		Registration{Name: "groq", Vendor: config.VendorGroq, Build: func() (api.Provider, error) {
			return &apitest.Stub{Label: "Groq"}, nil
		}},
	)

	first := r.ListAvailable()
	assert.Equal(t, []CatalogEntry{
		{Name: "gemini", Provider: "Google Gemini", DisplayName: "Google Gemini", IsAvailable: true},
		{Name: "groq", Provider: "Groq", DisplayName: "Groq (Llama 3.3)", IsAvailable: true},
	}, first)

	assert.Equal(t, first, r.ListAvailable())

	_, err := r.Resolve("broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrModelNotSupported)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "OpenAI GPT-4", DisplayName("gpt-4"))
	assert.Equal(t, "Meta Llama", DisplayName("llama"))
	assert.Equal(t, "Claude Haiku", DisplayName("claude-haiku"))
	assert.Equal(t, "", DisplayName(""))
}
