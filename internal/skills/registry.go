package skills

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maestro-ai/maestro/internal/config"
	"github.com/maestro-ai/maestro/internal/metrics"
)

// ============================================================================
// SKILL REGISTRY
// ============================================================================

// DefaultTimeout bounds a single connector call when no timeout is
// configured.
const DefaultTimeout = 10 * time.Second

// Registry holds the configured skills keyed by action type.
type Registry struct {
	mu      sync.RWMutex
	skills  map[string]Skill
	timeout time.Duration
}

// NewRegistry returns an empty registry. A timeout of zero or below falls
// back to DefaultTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		skills:  make(map[string]Skill),
		timeout: timeout,
	}
}

// NewDefaultRegistry builds the full dispatch table from configuration.
// Every known action type is registered; connectors whose credentials are
// missing fail with ErrUpstreamUnavailable when invoked.
func NewDefaultRegistry(cfg *config.Config) *Registry {
	r := NewRegistry(cfg.Skills.Timeout)
	r.MustRegister(NewYouTubeSkill(cfg.Skills.YouTube.APIKey))
	r.MustRegister(NewSpotifySkill(cfg.Skills.Spotify.ClientID, cfg.Skills.Spotify.ClientSecret))
	r.MustRegister(NewWeatherSkill(cfg.Skills.Weather.APIKey))
	r.MustRegister(NewTimeSkill())
	r.MustRegister(NewDateSkill())
	r.MustRegister(NewWebSearchSkill())
	r.MustRegister(NewOpenWebsiteSkill())
	r.MustRegister(NewWhatsAppSkill())
	return r
}

// Register adds a skill to the registry. Registering the same action type
// twice is an error.
func (r *Registry) Register(s Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.skills[s.Name()]; exists {
		return fmt.Errorf("skill already registered: %s", s.Name())
	}
	r.skills[s.Name()] = s
	return nil
}

// MustRegister is Register for wiring code, panicking on duplicates.
func (r *Registry) MustRegister(s Skill) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Get returns the skill registered for the action type.
func (r *Registry) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.skills[name]
	return s, ok
}

// Known reports whether the action type has a registered skill.
func (r *Registry) Known(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered action types in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named skill with a bounded timeout and records the
// outcome in logs and metrics.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]string) (*Result, error) {
	skill, ok := r.Get(name)
	if !ok {
		metrics.SkillInvocations.WithLabelValues(name, "unknown").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkill, name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	result, err := skill.Invoke(ctx, params)
	elapsed := time.Since(start)

	if err != nil {
		metrics.SkillInvocations.WithLabelValues(name, "error").Inc()
		log.Warn().
			Err(err).
			Str("skill", name).
			Dur("elapsed", elapsed).
			Msg("Skill invocation failed")
		return nil, err
	}

	result.Skill = name
	result.Duration = elapsed
	metrics.SkillInvocations.WithLabelValues(name, "success").Inc()
	log.Debug().
		Str("skill", name).
		Dur("elapsed", elapsed).
		Msg("Skill invocation completed")
	return result, nil
}
