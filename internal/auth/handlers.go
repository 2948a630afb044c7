package auth

import (
	"encoding/json"
	"net/http"
)

// Handlers provides HTTP handlers for authentication endpoints.
type Handlers struct {
	service *Service
}

// NewHandlers creates new auth handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers auth routes on a mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
}

// Signup handles account creation.
// POST /api/auth/signup
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "Username and password are required")
		return
	}

	user, err := h.service.Signup(r.Context(), &req)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user": user.ToResponse(),
	})
}

// Login handles user login.
// POST /api/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "Username and password are required")
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout revokes the caller's session.
// POST /api/auth/logout
// Responds 204 whether or not the token still named a live session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := bearerToken(r); err == nil {
		if err := h.service.Logout(r.Context(), token); err != nil {
			writeAuthError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// ───────────────────────────────────────────────────────────────────────────────
// HELPERS
// ───────────────────────────────────────────────────────────────────────────────

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
