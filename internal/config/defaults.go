package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"addr":          ":8080",
			"read_timeout":  15,
			"write_timeout": 60,
		},
		"database": map[string]interface{}{
			"driver": "sqlite",
			"path":   "~/.chat-gateway/gateway.db",
			"dsn":    "",
		},
		"providers": map[string]interface{}{
			"gemini": map[string]interface{}{
				"base_url": "https://generativelanguage.googleapis.com/v1beta",
				"timeout":  30,
				"models":   []string{"gemini"},
			},
			"openai": map[string]interface{}{
				"base_url": "https://api.openai.com/v1",
				"timeout":  30,
				"models":   []string{"gpt-4"},
			},
			"deepseek": map[string]interface{}{
				"base_url": "https://api.deepseek.com/v1",
				"timeout":  30,
				"models":   []string{"deepseek"},
			},
			"anthropic": map[string]interface{}{
				"base_url": "https://api.anthropic.com/v1",
				"timeout":  30,
				"models":   []string{"claude"},
			},
			"groq": map[string]interface{}{
				"base_url": "https://api.groq.com/openai/v1",
				"timeout":  30,
				"models":   []string{"groq"},
			},
			// Ollama is only registered once a base_url is configured.
			"ollama": map[string]interface{}{
				"timeout": 120,
				"models":  []string{"llama"},
			},
		},
		"model": map[string]interface{}{
			"max_tokens":  1000,
			"temperature": 0.7,
		},
		"chat": map[string]interface{}{
			"default_model":    "gemini",
			"default_language": "en",
			"history_window":   0,
			"page_size":        20,
			"history_days":     30,
		},
		"auth": map[string]interface{}{
			"anonymous_user": "",
		},
		"local": map[string]interface{}{
			"user_id": "local",
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "text",
		},
		"ui": map[string]interface{}{
			"show_token_count": true,
			"colored_output":   true,
			"render_markdown":  true,
			"history_file":     "~/.chat-gateway/readline_history",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "~/.chat-gateway/config.yaml"
}
