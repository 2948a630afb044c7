package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maestro-ai/maestro/internal/config"
	"github.com/maestro-ai/maestro/internal/data"
	"github.com/maestro-ai/maestro/internal/llm"
	"github.com/maestro-ai/maestro/internal/metrics"
	"github.com/maestro-ai/maestro/internal/skills"
)

// Dispatcher runs one conversation turn end to end: history read, model
// call, directive dispatch, persistence. It is safe for concurrent use;
// each turn is an independent chain of blocking calls on the request's
// context.
type Dispatcher struct {
	store    *data.Store
	provider llm.Provider
	skills   *skills.Registry

	contextWindow int
	historyLimit  int
	now           func() time.Time
}

// NewDispatcher wires the turn pipeline together. Context window and
// history cap come from the chat section of the configuration.
func NewDispatcher(store *data.Store, provider llm.Provider, registry *skills.Registry, cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		store:         store,
		provider:      provider,
		skills:        registry,
		contextWindow: cfg.Chat.ContextWindow,
		historyLimit:  cfg.Chat.HistoryLimit,
		now:           time.Now,
	}
}

// HandleTurn processes one user message and returns the assistant's
// reply with an optional action. Model and connector failures degrade to
// a textual reply; the only errors returned are ErrEmptyMessage and
// ErrStoreUnavailable for the initial history read.
//
// Exactly two messages are persisted per turn, whatever happened to the
// action. A persistence failure is logged and counted but does not
// withhold the reply that was already computed.
func (d *Dispatcher) HandleTurn(ctx context.Context, userID, text string) (*TurnResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	history, err := d.store.ListRecentMessages(ctx, userID, d.contextWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	reply, action := d.converse(ctx, BuildPrompt(history, text, d.now()))

	d.persistTurn(ctx, userID, text, reply, action)

	return &TurnResponse{Reply: reply, Action: action}, nil
}

// converse sends the prompt, parses the directive, and invokes the
// chosen connector. Every failure path still produces a reply:
//   - model transport failure or malformed output → fixed apology, no action
//   - connector failure → the model's own reply, no action
//   - connector success → the model's reply plus the result payload
func (d *Dispatcher) converse(ctx context.Context, req *llm.ChatRequest) (string, *Action) {
	resp, err := d.provider.Chat(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("provider", d.provider.Name()).Msg("model call failed; degrading to apology")
		return apologyReply, nil
	}

	dir, err := parseDirective(resp.Content, d.skills.Known)
	if err != nil {
		log.Warn().Err(err).Msg("model response did not match the directive contract")
		return apologyReply, nil
	}

	if dir.Action == nil {
		return dir.Reply, nil
	}

	result, err := d.skills.Invoke(ctx, dir.Action.Type, dir.Action.stringParams())
	if err != nil {
		// Registry already logged and counted the failure. Keep the reply,
		// drop the action.
		return dir.Reply, nil
	}

	return dir.Reply, &Action{Type: dir.Action.Type, Params: result.Payload}
}

// persistTurn appends the user message and the assistant reply, pruning
// history beyond the configured cap in the same transaction.
func (d *Dispatcher) persistTurn(ctx context.Context, userID, text, reply string, action *Action) {
	assistantMsg := &data.Message{UserID: userID, Content: reply}
	if action != nil {
		encoded, err := json.Marshal(action)
		if err != nil {
			log.Warn().Err(err).Str("action", action.Type).Msg("could not encode action for storage")
		} else {
			assistantMsg.ActionJSON = string(encoded)
		}
	}

	userMsg := &data.Message{UserID: userID, Content: text}

	if err := d.store.AppendTurn(ctx, userMsg, assistantMsg, d.historyLimit); err != nil {
		metrics.PersistenceFailures.Inc()
		log.Warn().Err(err).Str("user_id", userID).Msg("turn not persisted; returning reply anyway")
		return
	}

	log.Debug().
		Str("user_id", userID).
		Bool("has_action", action != nil).
		Msg("turn persisted")
}

// History returns up to limit of the user's most recent messages in
// chronological order, with stored actions decoded.
func (d *Dispatcher) History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > d.historyLimit {
		limit = d.historyLimit
	}

	messages, err := d.store.ListRecentMessages(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	entries := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		entry := HistoryEntry{
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		}
		if msg.ActionJSON != "" {
			var action Action
			if err := json.Unmarshal([]byte(msg.ActionJSON), &action); err == nil {
				entry.Action = &action
			}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// ClearHistory deletes all of the user's stored messages.
func (d *Dispatcher) ClearHistory(ctx context.Context, userID string) error {
	if err := d.store.ClearMessages(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
