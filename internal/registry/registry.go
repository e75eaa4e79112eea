// Package registry resolves logical model names to provider clients.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/notexe/chat-gateway/internal/api"
	"github.com/notexe/chat-gateway/internal/config"
)

// ErrModelNotSupported is returned for names that are not registered.
var ErrModelNotSupported = errors.New("model not supported")

// Constructor builds a fresh provider client.
type Constructor func() (api.Provider, error)

// CatalogEntry describes one selectable model.
type CatalogEntry struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"display_name"`
	IsAvailable bool   `json:"is_available"`
}

var displayNames = map[string]string{
	"gemini":   "Google Gemini",
	"gpt-4":    "OpenAI GPT-4",
	"claude":   "Anthropic Claude",
	"deepseek": "DeepSeek",
	"llama":    "Meta Llama",
	"groq":     "Groq (Llama 3.3)",
}

// DisplayName returns the human-readable name of a logical model.
func DisplayName(name string) string {
	if d, ok := displayNames[name]; ok {
		return d
	}
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Registration binds a logical model name to its vendor and constructor.
type Registration struct {
	Name   string
	Vendor string
	Build  Constructor
}

// Registry maps logical model names to constructors. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	entries []Registration
	index   map[string]int
	logger  *slog.Logger
}

// New registers a constructor for every logical name served by a vendor
// whose credentials are present.
func New(cfg *config.Config, logger *slog.Logger) *Registry {
	var regs []Registration
	for _, vendor := range config.Vendors {
		creds, ok := cfg.Credentials(vendor)
		if !ok {
			continue
		}
		for _, name := range creds.Models {
			regs = append(regs, Registration{
				Name:   name,
				Vendor: vendor,
				Build: func() (api.Provider, error) {
					return api.NewProvider(vendor, name, api.Settings{Credentials: creds, Logger: logger})
				},
			})
		}
	}

	r := NewFromRegistrations(logger, regs...)
	logger.Info("provider registry ready", "models", r.Names())
	return r
}

// NewFromRegistrations builds a registry in the given order. The first
// registration of a name wins.
func NewFromRegistrations(logger *slog.Logger, regs ...Registration) *Registry {
	r := &Registry{index: make(map[string]int), logger: logger}
	for _, reg := range regs {
		if _, dup := r.index[reg.Name]; dup || reg.Build == nil {
			continue
		}
		r.index[reg.Name] = len(r.entries)
		r.entries = append(r.entries, reg)
	}
	return r
}

// Resolve returns a ready client for a logical model name.
func (r *Registry) Resolve(name string) (api.Provider, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, name)
	}
	p, err := r.entries[i].Build()
	if err != nil {
		return nil, fmt.Errorf("build provider for %s: %w", name, err)
	}
	return p, nil
}

// IsAvailable reports whether a logical name is registered.
func (r *Registry) IsAvailable(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Names returns the registered logical names in catalog order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// ListAvailable constructs every registered client and returns those that
// could be built. Construction failures are logged and omitted.
func (r *Registry) ListAvailable() []CatalogEntry {
	catalog := make([]CatalogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		p, err := e.Build()
		if err != nil {
			r.logger.Warn("model unavailable", "model", e.Name, "error", err)
			continue
		}
		catalog = append(catalog, CatalogEntry{
			Name:        e.Name,
			Provider:    p.Name(),
			DisplayName: DisplayName(e.Name),
			IsAvailable: true,
		})
	}
	return catalog
}

// Validate probes the credentials of every registered model.
func (r *Registry) Validate(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(r.entries))
	for _, e := range r.entries {
		p, err := e.Build()
		if err != nil {
			results[e.Name] = false
			continue
		}
		results[e.Name] = p.ValidateCredentials(ctx)
	}
	return results
}
