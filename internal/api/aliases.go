package api

import "github.com/notexe/chat-gateway/internal/config"

type vendorModels struct {
	label   string
	def     string
	aliases map[string]string
}

var vendorTable = map[string]vendorModels{
	config.VendorGemini: {
		label: "Google Gemini",
		def:   "gemini-2.5-flash",
		aliases: map[string]string{
			"gemini":       "gemini-2.5-flash",
			"gemini-flash": "gemini-2.5-flash",
			"gemini-pro":   "gemini-2.5-pro",
		},
	},
	config.VendorOpenAI: {
		label: "OpenAI",
		def:   "gpt-3.5-turbo",
		aliases: map[string]string{
			"gpt-4":   "gpt-4",
			"gpt-4o":  "gpt-4o",
			"gpt-3.5": "gpt-3.5-turbo",
		},
	},
	config.VendorDeepSeek: {
		label: "DeepSeek",
		def:   "deepseek-chat",
		aliases: map[string]string{
			"deepseek":       "deepseek-chat",
			"deepseek-coder": "deepseek-coder",
		},
	},
	config.VendorAnthropic: {
		label: "Anthropic Claude",
		def:   "claude-3-sonnet-20240229",
		aliases: map[string]string{
			"claude":        "claude-3-sonnet-20240229",
			"claude-sonnet": "claude-3-sonnet-20240229",
			"claude-haiku":  "claude-3-haiku-20240307",
			"claude-opus":   "claude-3-opus-20240229",
		},
	},
	config.VendorGroq: {
		label: "Groq",
		def:   "llama-3.3-70b-versatile",
		aliases: map[string]string{
			"groq": "llama-3.3-70b-versatile",
		},
	},
	config.VendorOllama: {
		label: "Ollama",
		def:   "llama3.2",
		aliases: map[string]string{
			"llama": "llama3.2",
		},
	},
}

// ResolveModel maps a logical model name onto the vendor's concrete model
// id. Names without an alias get the vendor default.
func ResolveModel(vendor, logical string) string {
	vm, ok := vendorTable[vendor]
	if !ok {
		return logical
	}
	if id, ok := vm.aliases[logical]; ok {
		return id
	}
	return vm.def
}

// VendorLabel returns the human-readable vendor name.
func VendorLabel(vendor string) string {
	if vm, ok := vendorTable[vendor]; ok {
		return vm.label
	}
	return vendor
}
