package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/maestro-ai/maestro/internal/auth"
	"github.com/maestro-ai/maestro/internal/chat"
	"github.com/maestro-ai/maestro/internal/config"
	"github.com/maestro-ai/maestro/internal/data"
	"github.com/maestro-ai/maestro/internal/llm"
	"github.com/maestro-ai/maestro/internal/skills"
)

// stubProvider answers every chat with a fixed directive.
type stubProvider struct{}

func (stubProvider) Chat(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{
		Content: `{"reply":"hello","action":{"type":"none","params":{}}}`,
		Model:   "stub",
	}, nil
}

func (stubProvider) Name() string    { return "stub" }
func (stubProvider) Available() bool { return true }

func testServer(t *testing.T) *Server {
	t.Helper()

	store, err := data.NewDB(filepath.Join(t.TempDir(), "maestro.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Session.Secret = "test-secret-key"

	authSvc := auth.NewService(auth.NewStore(store.DB()), &auth.Config{
		Secret:     cfg.Session.Secret,
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	dispatcher := chat.NewDispatcher(store, stubProvider{}, skills.NewDefaultRegistry(cfg), cfg)

	return New(cfg, store, authSvc, stubProvider{}, dispatcher)
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("CORS origin = %q, want *", origin)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}
	if health.Version != version {
		t.Errorf("version = %q, want %q", health.Version, version)
	}
	if !health.Checks["database"].Healthy {
		t.Error("database check should be healthy")
	}
	if !health.Checks["llm"].Healthy {
		t.Error("llm check should be healthy with the stub provider")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Handler())
	defer srv.Close()

	// Drive one request through the middleware so the counters exist.
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	if !strings.Contains(string(body), "maestro_requests_total") {
		t.Error("metrics output missing the request counter")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/chat", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if methods := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(methods, "DELETE") {
		t.Errorf("allowed methods = %q, want DELETE included", methods)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/definitely/not/a/route")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSignupLoginChatFlow(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Handler())
	defer srv.Close()

	creds := `{"username":"alice","password":"password123"}`
	resp, err := http.Post(srv.URL+"/api/auth/signup", "application/json", strings.NewReader(creds))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, want 201", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/auth/login", "application/json", strings.NewReader(creds))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	var login auth.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	resp.Body.Close()
	if login.Token == "" {
		t.Fatal("login returned no token")
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Authorization", "Bearer "+login.Token)
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	var turn chat.TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&turn); err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, want 200", resp.StatusCode)
	}
	if turn.Reply != "hello" {
		t.Errorf("reply = %q, want hello", turn.Reply)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/history", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var history chat.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	resp.Body.Close()
	if len(history.Messages) != 2 {
		t.Errorf("expected 2 history entries after one turn, got %d", len(history.Messages))
	}
}

func TestShutdown(t *testing.T) {
	srv := testServer(t)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v after shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Start did not return after shutdown")
	}
}
