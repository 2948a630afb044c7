package llm

import (
	"fmt"
	"os"

	"github.com/maestro-ai/maestro/internal/config"
)

// NewProvider creates an LLM provider based on application configuration.
func NewProvider(cfg *config.Config) (Provider, error) {
	name := cfg.LLM.Provider
	if name == "" {
		name = "gemini"
	}

	// API key from config, falling back to the conventional env variable.
	apiKey := cfg.LLM.APIKey
	if apiKey == "" {
		apiKey = apiKeyFromEnv(name)
	}

	providerCfg := &ProviderConfig{
		Name:     name,
		Endpoint: cfg.LLM.Endpoint,
		APIKey:   apiKey,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
	}

	return NewProviderByName(name, providerCfg)
}

// apiKeyFromEnv retrieves the API key from standard environment variables.
func apiKeyFromEnv(providerName string) string {
	envVars := map[string]string{
		"openai": "OPENAI_API_KEY",
		"gemini": "GEMINI_API_KEY",
	}
	if envVar, ok := envVars[providerName]; ok {
		return os.Getenv(envVar)
	}
	return ""
}

// NewProviderByName creates a specific provider by name.
// All providers are wrapped with metrics collection.
func NewProviderByName(name string, cfg *ProviderConfig) (Provider, error) {
	var provider Provider

	switch name {
	case "gemini":
		provider = NewGeminiProvider(cfg)
	case "openai":
		provider = NewOpenAIProvider(cfg)
	case "ollama":
		provider = NewOllamaProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return NewMetricsProvider(provider), nil
}
