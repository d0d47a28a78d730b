package config

// Upstream providers for the chat proxy.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel   = "deepseek/deepseek-r1-0528-qwen3-8b:free"
	DefaultGeminiModel       = "gemini-2.5-flash"
)

// ValidProviders lists all supported upstream providers.
var ValidProviders = []string{ProviderOpenRouter, ProviderGemini}

// LLMConfig configures the chat proxy's upstream.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openrouter, gemini
	APIKey   string `yaml:"api_key"`  // OpenRouter
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`

	// Sent as HTTP-Referer and X-Title so OpenRouter can attribute traffic.
	Referer string `yaml:"referer"`
	Title   string `yaml:"title"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
}

// ActiveKey returns the key for the configured provider.
func (c LLMConfig) ActiveKey() string {
	if c.Provider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.APIKey
}

// ActiveModel returns the default model for the configured provider.
func (c LLMConfig) ActiveModel() string {
	if c.Provider == ProviderGemini {
		return c.GeminiModel
	}
	return c.Model
}
