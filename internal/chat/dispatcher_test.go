package chat

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/maestro-ai/maestro/internal/config"
	"github.com/maestro-ai/maestro/internal/data"
	"github.com/maestro-ai/maestro/internal/llm"
	"github.com/maestro-ai/maestro/internal/skills"
)

// scriptedProvider plays back canned model output and records what it
// was asked.
type scriptedProvider struct {
	content string
	err     error
	lastReq *llm.ChatRequest
	calls   int
}

func (p *scriptedProvider) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.calls++
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ChatResponse{Content: p.content, Model: "scripted"}, nil
}

func (p *scriptedProvider) Name() string    { return "scripted" }
func (p *scriptedProvider) Available() bool { return true }

// fakeSkill stands in for a connector.
type fakeSkill struct {
	name string
	fn   func(ctx context.Context, params map[string]string) (*skills.Result, error)
}

func (s *fakeSkill) Name() string { return s.name }

func (s *fakeSkill) Invoke(ctx context.Context, params map[string]string) (*skills.Result, error) {
	return s.fn(ctx, params)
}

func failingSkill(name string, err error) *fakeSkill {
	return &fakeSkill{name: name, fn: func(context.Context, map[string]string) (*skills.Result, error) {
		return nil, err
	}}
}

// setupDispatcher builds a dispatcher over a temporary database with one
// registered user.
func setupDispatcher(t *testing.T, provider llm.Provider, reg *skills.Registry) (*Dispatcher, *data.Store, string) {
	t.Helper()

	store, err := data.NewDB(filepath.Join(t.TempDir(), "maestro.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	const userID = "user-1"
	_, err = store.DB().Exec(`
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, 'alice', 'hash', ?)
	`, userID, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert test user: %v", err)
	}

	if reg == nil {
		reg = skills.NewRegistry(time.Second)
	}

	cfg := config.Default()
	cfg.Chat.ContextWindow = 10
	cfg.Chat.HistoryLimit = 50

	return NewDispatcher(store, provider, reg, cfg), store, userID
}

func messageCount(t *testing.T, store *data.Store, userID string) int {
	t.Helper()

	n, err := store.CountMessages(context.Background(), userID)
	if err != nil {
		t.Fatalf("count messages: %v", err)
	}
	return n
}

func TestHandleTurnConversation(t *testing.T) {
	provider := &scriptedProvider{content: `{"reply":"Hi there!","action":{"type":"none","params":{}}}`}
	d, store, userID := setupDispatcher(t, provider, nil)

	resp, err := d.HandleTurn(context.Background(), userID, "hello")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if resp.Reply != "Hi there!" {
		t.Errorf("reply = %q, want Hi there!", resp.Reply)
	}
	if resp.Action != nil {
		t.Errorf("expected nil action for conversation, got %+v", resp.Action)
	}
	if n := messageCount(t, store, userID); n != 2 {
		t.Errorf("expected exactly 2 persisted messages, got %d", n)
	}
}

func TestHandleTurnSkillSuccess(t *testing.T) {
	// The "play despacito" scenario: the connector's payload replaces the
	// model's params in the returned action.
	provider := &scriptedProvider{
		content: `{"reply":"Here you go!","action":{"type":"searchVideo","params":{"query":"despacito"}}}`,
	}

	var gotParams map[string]string
	reg := skills.NewRegistry(time.Second)
	reg.MustRegister(&fakeSkill{name: skills.SearchVideo, fn: func(_ context.Context, params map[string]string) (*skills.Result, error) {
		gotParams = params
		return &skills.Result{Payload: map[string]interface{}{
			"title":    "Luis Fonsi - Despacito",
			"embedUrl": "https://www.youtube.com/embed/kJQP7kiw5Fk",
		}}, nil
	}})

	d, store, userID := setupDispatcher(t, provider, reg)

	resp, err := d.HandleTurn(context.Background(), userID, "play despacito")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if gotParams["query"] != "despacito" {
		t.Errorf("connector params = %v, want query despacito", gotParams)
	}
	if resp.Reply != "Here you go!" {
		t.Errorf("reply = %q, want the model's reply", resp.Reply)
	}
	if resp.Action == nil || resp.Action.Type != skills.SearchVideo {
		t.Fatalf("expected searchVideo action, got %+v", resp.Action)
	}
	if resp.Action.Params["embedUrl"] != "https://www.youtube.com/embed/kJQP7kiw5Fk" {
		t.Errorf("action params = %v, want the connector payload", resp.Action.Params)
	}
	if _, stillThere := resp.Action.Params["query"]; stillThere {
		t.Error("model params must be replaced by the connector payload, not merged")
	}

	// The assistant row carries the action for history replay.
	history, err := d.History(context.Background(), userID, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Role != data.RoleUser || history[0].Content != "play despacito" {
		t.Errorf("first entry should be the user turn, got %+v", history[0])
	}
	assistant := history[1]
	if assistant.Action == nil || assistant.Action.Type != skills.SearchVideo {
		t.Fatalf("stored assistant turn lost its action: %+v", assistant)
	}
	if assistant.Action.Params["embedUrl"] != "https://www.youtube.com/embed/kJQP7kiw5Fk" {
		t.Errorf("stored action params = %v", assistant.Action.Params)
	}
	if n := messageCount(t, store, userID); n != 2 {
		t.Errorf("expected exactly 2 persisted messages, got %d", n)
	}
}

func TestHandleTurnConnectorFailure(t *testing.T) {
	// Weather with no API key: the reply survives, the action is dropped.
	provider := &scriptedProvider{
		content: `{"reply":"Let me check the weather in Paris.","action":{"type":"getWeather","params":{"city":"Paris"}}}`,
	}
	reg := skills.NewRegistry(time.Second)
	reg.MustRegister(failingSkill(skills.GetWeather, fmt.Errorf("%w: no key", skills.ErrUpstreamUnavailable)))

	d, store, userID := setupDispatcher(t, provider, reg)

	resp, err := d.HandleTurn(context.Background(), userID, "what's the weather in Paris")
	if err != nil {
		t.Fatalf("connector failure must not fail the turn: %v", err)
	}

	if resp.Reply != "Let me check the weather in Paris." {
		t.Errorf("reply = %q, want the model's own reply", resp.Reply)
	}
	if resp.Action != nil {
		t.Errorf("expected nil action after connector failure, got %+v", resp.Action)
	}
	if n := messageCount(t, store, userID); n != 2 {
		t.Errorf("expected exactly 2 persisted messages, got %d", n)
	}
}

func TestHandleTurnMalformedModelOutput(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"prose", "I'd love to help with that!"},
		{"missing reply", `{"action":{"type":"none","params":{}}}`},
		{"unknown action", `{"reply":"ok","action":{"type":"selfDestruct","params":{}}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &scriptedProvider{content: tc.content}
			d, store, userID := setupDispatcher(t, provider, nil)

			resp, err := d.HandleTurn(context.Background(), userID, "hello")
			if err != nil {
				t.Fatalf("malformed model output must not fail the turn: %v", err)
			}
			if resp.Reply != apologyReply {
				t.Errorf("reply = %q, want the apology", resp.Reply)
			}
			if resp.Action != nil {
				t.Errorf("expected nil action, got %+v", resp.Action)
			}
			if n := messageCount(t, store, userID); n != 2 {
				t.Errorf("expected exactly 2 persisted messages, got %d", n)
			}
		})
	}
}

func TestHandleTurnModelUnreachable(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection refused")}
	d, store, userID := setupDispatcher(t, provider, nil)

	resp, err := d.HandleTurn(context.Background(), userID, "hello")
	if err != nil {
		t.Fatalf("model transport failure must not fail the turn: %v", err)
	}
	if resp.Reply != apologyReply {
		t.Errorf("reply = %q, want the apology", resp.Reply)
	}
	if n := messageCount(t, store, userID); n != 2 {
		t.Errorf("expected exactly 2 persisted messages, got %d", n)
	}
}

func TestHandleTurnEmptyMessage(t *testing.T) {
	provider := &scriptedProvider{content: `{"reply":"hi"}`}
	d, _, userID := setupDispatcher(t, provider, nil)

	_, err := d.HandleTurn(context.Background(), userID, "   ")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	if provider.calls != 0 {
		t.Error("empty message must not reach the model")
	}
}

func TestHandleTurnStoreUnavailable(t *testing.T) {
	provider := &scriptedProvider{content: `{"reply":"hi"}`}
	d, store, userID := setupDispatcher(t, provider, nil)

	store.Close()

	_, err := d.HandleTurn(context.Background(), userID, "hello")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestHandleTurnReplaysHistory(t *testing.T) {
	provider := &scriptedProvider{content: `{"reply":"noted","action":{"type":"none","params":{}}}`}
	d, _, userID := setupDispatcher(t, provider, nil)
	ctx := context.Background()

	if _, err := d.HandleTurn(ctx, userID, "my name is Dana"); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if _, err := d.HandleTurn(ctx, userID, "what's my name?"); err != nil {
		t.Fatalf("second turn failed: %v", err)
	}

	// The second call sees the first turn (user + assistant) plus the new
	// message.
	req := provider.lastReq
	if len(req.Messages) != 3 {
		t.Fatalf("expected 3 messages in second prompt, got %d", len(req.Messages))
	}
	if req.Messages[0].Content != "my name is Dana" {
		t.Errorf("history lost: %+v", req.Messages[0])
	}
	if req.Messages[1].Role != data.RoleAssistant || req.Messages[1].Content != "noted" {
		t.Errorf("assistant turn not replayed: %+v", req.Messages[1])
	}
}

func TestHandleTurnPrunesHistory(t *testing.T) {
	provider := &scriptedProvider{content: `{"reply":"ok","action":{"type":"none","params":{}}}`}
	d, store, userID := setupDispatcher(t, provider, nil)
	d.historyLimit = 4
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := d.HandleTurn(ctx, userID, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("turn %d failed: %v", i, err)
		}
	}

	if n := messageCount(t, store, userID); n != 4 {
		t.Errorf("history cap not enforced: %d rows, want 4", n)
	}

	// The oldest rows were pruned; the newest turn survives.
	history, err := d.History(ctx, userID, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if history[len(history)-2].Content != "message 4" {
		t.Errorf("newest turn missing after prune: %+v", history)
	}
}

func TestClearHistory(t *testing.T) {
	provider := &scriptedProvider{content: `{"reply":"ok"}`}
	d, store, userID := setupDispatcher(t, provider, nil)
	ctx := context.Background()

	if _, err := d.HandleTurn(ctx, userID, "hello"); err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if err := d.ClearHistory(ctx, userID); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	if n := messageCount(t, store, userID); n != 0 {
		t.Errorf("expected empty history, got %d rows", n)
	}
}

func TestHistoryRespectsLimit(t *testing.T) {
	provider := &scriptedProvider{content: `{"reply":"ok"}`}
	d, _, userID := setupDispatcher(t, provider, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := d.HandleTurn(ctx, userID, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("turn failed: %v", err)
		}
	}

	history, err := d.History(ctx, userID, 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	// Newest rows, oldest first.
	if history[0].Content != "m2" {
		t.Errorf("expected the latest user turn first, got %+v", history[0])
	}
	if history[1].Role != data.RoleAssistant {
		t.Errorf("expected the latest assistant turn second, got %+v", history[1])
	}
}
