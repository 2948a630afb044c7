// Package server assembles the Maestro HTTP API: auth and chat routes,
// the health endpoint, Prometheus metrics, CORS, and graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/maestro-ai/maestro/internal/auth"
	"github.com/maestro-ai/maestro/internal/chat"
	"github.com/maestro-ai/maestro/internal/config"
	"github.com/maestro-ai/maestro/internal/data"
	"github.com/maestro-ai/maestro/internal/llm"
	"github.com/maestro-ai/maestro/internal/metrics"
)

const version = "0.1.0"

// sessionSweepInterval controls how often expired sessions are purged.
const sessionSweepInterval = 5 * time.Minute

// Server is the Maestro HTTP server.
type Server struct {
	cfg        *config.Config
	store      *data.Store
	auth       *auth.Service
	provider   llm.Provider
	httpServer *http.Server
	startTime  time.Time

	sweepStop chan struct{}
	sweepDone chan struct{}
	stopOnce  sync.Once
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult reports one dependency's health.
type CheckResult struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// New assembles the HTTP server from its wired components.
func New(cfg *config.Config, store *data.Store, authSvc *auth.Service, provider llm.Provider, dispatcher *chat.Dispatcher) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		auth:      authSvc,
		provider:  provider,
		startTime: time.Now(),
		sweepStop: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}

	mux := http.NewServeMux()
	auth.NewHandlers(authSvc).RegisterRoutes(mux)
	chat.NewHandlers(dispatcher).RegisterRoutes(mux, auth.NewMiddleware(authSvc).RequireAuth)
	mux.HandleFunc("GET /api/health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	// WriteTimeout must outlast the slowest model call.
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      chainMiddleware(mux, withObservability, withCORS(cfg.Server.AllowedOrigin)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the assembled root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the server until Shutdown is called. It blocks.
func (s *Server) Start() error {
	go s.sweepSessions()

	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the session sweeper and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.sweepStop) })
	select {
	case <-s.sweepDone:
	case <-ctx.Done():
	}
	return s.httpServer.Shutdown(ctx)
}

// sweepSessions periodically deletes expired sessions and keeps the
// active session gauge current.
func (s *Server) sweepSessions() {
	defer close(s.sweepDone)

	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	s.sweepOnce()
	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.sweepStop:
			return
		}
	}
}

func (s *Server) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	removed, err := s.auth.CleanupExpiredSessions(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("session sweep failed")
		return
	}
	if removed > 0 {
		log.Debug().Int64("removed", removed).Msg("expired sessions purged")
	}

	if n, err := s.auth.CountSessions(ctx); err == nil {
		metrics.ActiveSessions.Set(float64(n))
	}
}

// healthHandler reports server and dependency health. The status degrades
// only on database failure; an unconfigured model provider still leaves
// auth and history usable.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	checks := map[string]CheckResult{}
	status := "healthy"
	code := http.StatusOK

	if err := s.store.Health(); err != nil {
		checks["database"] = CheckResult{Healthy: false, Message: err.Error()}
		status = "degraded"
		code = http.StatusServiceUnavailable
	} else {
		checks["database"] = CheckResult{Healthy: true}
	}

	checks["llm"] = CheckResult{Healthy: s.provider.Available(), Message: s.provider.Name()}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    status,
		Version:   version,
		Uptime:    time.Since(s.startTime).String(),
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
