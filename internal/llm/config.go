// Package llm provides the generation-service gateway: a stateless prompt -> text call
// over several providers, selected by configuration.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short tasks such as summarization
	TierLite ModelTier = "lite"
	// TierStandard is for query generation and chart code
	TierStandard ModelTier = "standard"
	// TierAdvanced is for reflection prompts when a separate model is configured
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderAnthropic is the Anthropic/Claude provider
	ProviderAnthropic Provider = "anthropic"
	// ProviderGroq is any OpenAI-compatible chat completions endpoint (Groq by default)
	ProviderGroq Provider = "groq"
)

// DefaultGroqBaseURL is used when no GROQ_BASE_URL is configured
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float64
	MaxTokens   int64
	// BaseURL overrides the provider endpoint (Groq only)
	BaseURL string
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		MaxTokens: 4096,
	}
}

// DefaultAnthropicConfig returns the default Anthropic configuration
func DefaultAnthropicConfig() *Config {
	return &Config{
		Provider: ProviderAnthropic,
		Models: map[ModelTier]string{
			TierLite:     "claude-3-5-haiku-20241022",
			TierStandard: "claude-sonnet-4-20250514",
		},
		MaxTokens: 4096,
	}
}

// DefaultGroqConfig returns the default Groq configuration
func DefaultGroqConfig() *Config {
	return &Config{
		Provider: ProviderGroq,
		Models: map[ModelTier]string{
			TierStandard: "llama3-70b-8192",
		},
		MaxTokens: 4096,
		BaseURL:   DefaultGroqBaseURL,
	}
}

// ConfigFor returns the default configuration for a provider name.
// Unknown names fall back to Gemini.
func ConfigFor(provider string) *Config {
	switch Provider(provider) {
	case ProviderAnthropic:
		return DefaultAnthropicConfig()
	case ProviderGroq:
		return DefaultGroqConfig()
	default:
		return DefaultGeminiConfig()
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string),
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		BaseURL:     c.BaseURL,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}

// WithAllTiers returns a new Config that uses one model for every tier
func (c *Config) WithAllTiers(model string) *Config {
	out := c.WithModel(TierLite, model)
	out.Models[TierStandard] = model
	out.Models[TierAdvanced] = model
	return out
}
