package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Zero(t, config.Temperature)
}

func TestConfigFor(t *testing.T) {
	assert.Equal(t, ProviderAnthropic, ConfigFor("anthropic").Provider)
	assert.Equal(t, ProviderGroq, ConfigFor("groq").Provider)
	assert.Equal(t, ProviderGemini, ConfigFor("gemini").Provider)
	assert.Equal(t, ProviderGemini, ConfigFor("something-else").Provider)
}

func TestGroqConfig_FallsBackToStandard(t *testing.T) {
	config := DefaultGroqConfig()

	assert.Equal(t, "llama3-70b-8192", config.GetModel(TierLite))
	assert.Equal(t, "llama3-70b-8192", config.GetModel(TierAdvanced))
	assert.Equal(t, DefaultGroqBaseURL, config.BaseURL)
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	// Unknown tier should fallback to TierStandard, then TierLite
	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models:   map[ModelTier]string{},
	}

	assert.Equal(t, "", config.GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	config.Temperature = 0.2
	newConfig := config.WithModel(TierAdvanced, "custom-model")

	// Original should be unchanged
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))

	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash", newConfig.GetModel(TierStandard))
	assert.Equal(t, 0.2, newConfig.Temperature)
}

func TestWithAllTiers(t *testing.T) {
	config := DefaultAnthropicConfig().WithAllTiers("claude-x")

	assert.Equal(t, "claude-x", config.GetModel(TierLite))
	assert.Equal(t, "claude-x", config.GetModel(TierStandard))
	assert.Equal(t, "claude-x", config.GetModel(TierAdvanced))
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "openai"}, "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestNewClient_GroqRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), DefaultGroqConfig(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}
