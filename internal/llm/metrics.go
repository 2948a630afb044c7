package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maestro-ai/maestro/internal/metrics"
)

// MetricsProvider wraps an LLM provider with timing and metrics collection.
// Every call is recorded in the Prometheus collectors and logged.
type MetricsProvider struct {
	provider Provider
	name     string
}

// NewMetricsProvider wraps a provider with metrics collection.
func NewMetricsProvider(provider Provider) *MetricsProvider {
	return &MetricsProvider{
		provider: provider,
		name:     provider.Name(),
	}
}

// Chat implements Provider with metrics.
func (m *MetricsProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	resp, err := m.provider.Chat(ctx, req)

	latency := time.Since(start)

	model := req.Model
	if model == "" && resp != nil {
		model = resp.Model
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	metrics.ModelCalls.WithLabelValues(m.name, model, outcome).Inc()
	metrics.ModelLatency.WithLabelValues(m.name, model).Observe(latency.Seconds())

	if resp != nil {
		metrics.ModelTokens.WithLabelValues(m.name, "prompt").Add(float64(resp.PromptTokens))
		metrics.ModelTokens.WithLabelValues(m.name, "completion").Add(float64(resp.CompletionTokens))
	}

	if err != nil {
		log.Warn().
			Err(err).
			Str("provider", m.name).
			Str("model", model).
			Dur("latency", latency).
			Msg("model call failed")
	} else {
		log.Debug().
			Str("provider", m.name).
			Str("model", model).
			Dur("latency", latency).
			Int("tokens", resp.TokensUsed).
			Msg("model call completed")
	}

	return resp, err
}

// Name implements Provider interface.
func (m *MetricsProvider) Name() string {
	return m.name
}

// Available implements Provider interface.
func (m *MetricsProvider) Available() bool {
	return m.provider.Available()
}

// Unwrap returns the underlying provider.
func (m *MetricsProvider) Unwrap() Provider {
	return m.provider
}
