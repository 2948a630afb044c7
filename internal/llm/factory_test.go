package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/internal/config"
)

func TestNewProviderByName(t *testing.T) {
	for _, name := range []string{"gemini", "openai", "ollama"} {
		provider, err := NewProviderByName(name, &ProviderConfig{APIKey: "k"})
		require.NoError(t, err, name)
		assert.Equal(t, name, provider.Name())

		// Providers come back wrapped with metrics collection.
		mp, ok := provider.(*MetricsProvider)
		require.True(t, ok, "%s not wrapped with metrics", name)
		assert.Equal(t, name, mp.Unwrap().Name())
	}

	_, err := NewProviderByName("carrier-pigeon", &ProviderConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewProviderFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "gemini"
	cfg.LLM.Model = "gemini-2.0-flash"
	cfg.LLM.APIKey = "from-config"
	cfg.LLM.Timeout = 30 * time.Second

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini", provider.Name())
	assert.True(t, provider.Available())
}

func TestNewProviderEnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg := config.Default()
	cfg.LLM.Provider = "gemini"
	cfg.LLM.APIKey = ""

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.True(t, provider.Available(), "env API key should make the provider available")
}

func TestNewProviderDefaultsToGemini(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = ""
	cfg.LLM.APIKey = "k"

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini", provider.Name())
}
