package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderAnthropic, config.Provider)
	assert.Equal(t, "claude-3-5-haiku-20241022", config.GetModel(TierLite))
	assert.Equal(t, "claude-sonnet-4-20250514", config.GetModel(TierStandard))
	assert.Equal(t, "claude-sonnet-4-20250514", config.GetModel(TierAdvanced))
	assert.Equal(t, 8192, config.MaxTokens)
}

func TestConfigFor(t *testing.T) {
	assert.Equal(t, ProviderGemini, ConfigFor("gemini").Provider)
	assert.Equal(t, "gemini-2.5-pro", ConfigFor("gemini").GetModel(TierAdvanced))
	assert.Equal(t, ProviderAnthropic, ConfigFor("anthropic").Provider)
	assert.Equal(t, ProviderAnthropic, ConfigFor("").Provider)
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
	config := &Config{Provider: ProviderGemini, Models: map[ModelTier]string{}}
	assert.Equal(t, "", config.GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithModel(TierAdvanced, "custom-model")

	// Original should be unchanged
	assert.Equal(t, "claude-sonnet-4-20250514", config.GetModel(TierAdvanced))

	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, "claude-3-5-haiku-20241022", newConfig.GetModel(TierLite))
	assert.Equal(t, config.MaxTokens, newConfig.MaxTokens)
}

func TestModelTierConstants(t *testing.T) {
	assert.Equal(t, ModelTier("lite"), TierLite)
	assert.Equal(t, ModelTier("standard"), TierStandard)
	assert.Equal(t, ModelTier("advanced"), TierAdvanced)
}
