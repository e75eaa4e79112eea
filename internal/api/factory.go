package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/notexe/chat-gateway/internal/config"
)

// ErrMissingAPIKey is returned when a hosted vendor has no credential.
var ErrMissingAPIKey = errors.New("api key is required")

// Settings carries what NewProvider needs besides the vendor and model.
type Settings struct {
	Credentials config.ProviderConfig
	Logger      *slog.Logger
	// HTTPClient overrides the client built from Credentials.Timeout.
	HTTPClient *http.Client
}

// NewProvider creates the client of a vendor for one logical model name.
func NewProvider(vendor, logicalName string, s Settings) (Provider, error) {
	creds := s.Credentials
	if vendor != config.VendorOllama && creds.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", vendor, ErrMissingAPIKey)
	}

	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := creds.RequestTimeout()
	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	b := base{
		label:   VendorLabel(vendor),
		model:   ResolveModel(vendor, logicalName),
		apiKey:  creds.APIKey,
		baseURL: strings.TrimSuffix(creds.BaseURL, "/"),
		timeout: timeout,
		client:  client,
		logger:  logger.With("provider", vendor),
	}

	switch vendor {
	case config.VendorOpenAI, config.VendorGroq:
		return newOpenAIProvider(b), nil

	case config.VendorDeepSeek:
		p, err := newDeepSeekProvider(b)
		if err != nil {
			return nil, err
		}
		return p, nil

	case config.VendorAnthropic:
		return &AnthropicProvider{base: b}, nil

	case config.VendorGemini:
		return &GeminiProvider{base: b}, nil

	case config.VendorOllama:
		if b.baseURL == "" {
			b.baseURL = defaultOllamaURL
		}
		return &OllamaProvider{base: b}, nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s)",
			vendor, strings.Join(config.Vendors, ", "))
	}
}
