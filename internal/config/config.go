package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Vendor names used as keys under "providers".
const (
	VendorGemini    = "gemini"
	VendorOpenAI    = "openai"
	VendorDeepSeek  = "deepseek"
	VendorAnthropic = "anthropic"
	VendorGroq      = "groq"
	VendorOllama    = "ollama"
)

// Vendors lists every supported vendor in registration order.
var Vendors = []string{VendorGemini, VendorOpenAI, VendorDeepSeek, VendorAnthropic, VendorGroq, VendorOllama}

// envPrefix is the prefix for structured overrides, e.g.
// GATEWAY_SERVER__ADDR=:9090 or GATEWAY_CHAT__HISTORY_WINDOW=10.
const envPrefix = "GATEWAY_"

// vendorKeyEnv maps the conventional vendor variables onto config keys.
var vendorKeyEnv = map[string]string{
	"GEMINI_API_KEY":    "providers.gemini.api_key",
	"OPENAI_API_KEY":    "providers.openai.api_key",
	"DEEPSEEK_API_KEY":  "providers.deepseek.api_key",
	"ANTHROPIC_API_KEY": "providers.anthropic.api_key",
	"GROQ_API_KEY":      "providers.groq.api_key",
	"OLLAMA_BASE_URL":   "providers.ollama.base_url",
}

type Config struct {
	Server    ServerConfig              `koanf:"server"`
	Database  DatabaseConfig            `koanf:"database"`
	Providers map[string]ProviderConfig `koanf:"providers"`
	Model     ModelConfig               `koanf:"model"`
	Chat      ChatConfig                `koanf:"chat"`
	Auth      AuthConfig                `koanf:"auth"`
	Local     LocalConfig               `koanf:"local"`
	Log       LogConfig                 `koanf:"log"`
	UI        UIConfig                  `koanf:"ui"`
}

type ServerConfig struct {
	Addr         string `koanf:"addr"`
	ReadTimeout  int    `koanf:"read_timeout"`  // seconds
	WriteTimeout int    `koanf:"write_timeout"` // seconds
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"` // sqlite or postgres
	Path   string `koanf:"path"`
	DSN    string `koanf:"dsn"`
}

// ProviderConfig holds the credentials and endpoint of one vendor.
type ProviderConfig struct {
	APIKey  string   `koanf:"api_key"`
	BaseURL string   `koanf:"base_url"`
	Timeout int      `koanf:"timeout"` // seconds
	Models  []string `koanf:"models"`  // logical model names served by this vendor
}

type ModelConfig struct {
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
}

type ChatConfig struct {
	DefaultModel    string `koanf:"default_model"`
	DefaultLanguage string `koanf:"default_language"`
	HistoryWindow   int    `koanf:"history_window"` // 0 sends the whole history
	PageSize        int    `koanf:"page_size"`
	HistoryDays     int    `koanf:"history_days"`
}

type AuthConfig struct {
	Tokens        map[string]string `koanf:"tokens"` // bearer token -> user id
	AnonymousUser string            `koanf:"anonymous_user"`
}

type LocalConfig struct {
	UserID string `koanf:"user_id"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type UIConfig struct {
	ShowTokenCount bool   `koanf:"show_token_count"`
	ColoredOutput  bool   `koanf:"colored_output"`
	RenderMarkdown bool   `koanf:"render_markdown"`
	HistoryFile    string `koanf:"history_file"`
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		configPath = expandPath(configPath)

		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	for name, key := range vendorKeyEnv {
		if v := os.Getenv(name); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.UI.HistoryFile = expandPath(cfg.UI.HistoryFile)

	return &cfg, nil
}

func (c *Config) Validate() error {
	for name := range c.Providers {
		if !isVendor(name) {
			return fmt.Errorf("unknown provider: %s (supported: %s)", name, strings.Join(Vendors, ", "))
		}
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown database driver: %s (supported: sqlite, postgres)", c.Database.Driver)
	}

	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	if c.Chat.HistoryWindow < 0 {
		return fmt.Errorf("history_window must not be negative")
	}

	if c.Chat.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive")
	}

	if c.Chat.DefaultLanguage != "en" && c.Chat.DefaultLanguage != "ar" {
		return fmt.Errorf("default_language must be en or ar")
	}

	if c.Local.UserID == "" {
		return fmt.Errorf("local.user_id is required")
	}

	return nil
}

// Credentials is the named configuration lookup used to build provider
// clients. The second return value reports whether the vendor is usable:
// an API key for hosted vendors, a base URL for Ollama.
func (c *Config) Credentials(vendor string) (ProviderConfig, bool) {
	pc, ok := c.Providers[vendor]
	if !ok {
		return ProviderConfig{}, false
	}
	if vendor == VendorOllama {
		return pc, pc.BaseURL != ""
	}
	return pc, pc.APIKey != ""
}

// RequestTimeout returns the per-call timeout of a vendor.
func (p ProviderConfig) RequestTimeout() time.Duration {
	if p.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.Timeout) * time.Second
}

func isVendor(name string) bool {
	for _, v := range Vendors {
		if v == name {
			return true
		}
	}
	return false
}

func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
