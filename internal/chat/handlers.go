package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/maestro-ai/maestro/internal/auth"
)

// Handlers provides the HTTP handlers for the chat endpoints. All routes
// require an authenticated user in the request context.
type Handlers struct {
	dispatcher *Dispatcher
}

// NewHandlers creates chat handlers backed by the dispatcher.
func NewHandlers(dispatcher *Dispatcher) *Handlers {
	return &Handlers{dispatcher: dispatcher}
}

// RegisterRoutes registers the chat routes on a mux, wrapped in the
// session guard.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.Handle("POST /api/chat", guard(http.HandlerFunc(h.Chat)))
	mux.Handle("GET /api/history", guard(http.HandlerFunc(h.History)))
	mux.Handle("DELETE /api/history", guard(http.HandlerFunc(h.ClearHistory)))
}

// ChatRequest is the payload for one chat turn.
type ChatRequest struct {
	Message string `json:"message"`
}

// HistoryResponse wraps the stored messages, oldest first.
type HistoryResponse struct {
	Messages []HistoryEntry `json:"messages"`
}

// Chat handles one conversation turn.
// POST /api/chat
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "session required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	resp, err := h.dispatcher.HandleTurn(r.Context(), user.ID, req.Message)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// History returns the caller's stored conversation, oldest first.
// GET /api/history?limit=N
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "session required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.dispatcher.History(r.Context(), user.ID, limit)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Messages: entries})
}

// ClearHistory deletes the caller's conversation history.
// DELETE /api/history
func (h *Handlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "session required")
		return
	}

	if err := h.dispatcher.ClearHistory(r.Context(), user.ID); err != nil {
		writeTurnError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ───────────────────────────────────────────────────────────────────────────────
// HELPERS
// ───────────────────────────────────────────────────────────────────────────────

func writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "EMPTY_MESSAGE", "message is required")
	case errors.Is(err, ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "conversation history is temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "unexpected failure")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
