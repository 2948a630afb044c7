package auth

import (
	"context"
	"net/http"
	"strings"
)

// Context keys for storing auth data in request context
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user
	UserContextKey contextKey = "auth_user"
	// ClaimsContextKey is the context key for session token claims
	ClaimsContextKey contextKey = "auth_claims"
)

// Middleware provides HTTP middleware for authentication.
type Middleware struct {
	service *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

// RequireAuth is middleware that requires a valid session token.
// Requests without valid auth receive a 401 response.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		user, claims, err := m.service.ValidateToken(r.Context(), token)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, ClaimsContextKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", ErrInvalidToken
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", ErrMissingToken
	}

	return token, nil
}

// ───────────────────────────────────────────────────────────────────────────────
// CONTEXT HELPERS
// ───────────────────────────────────────────────────────────────────────────────

// UserFromContext retrieves the authenticated user from the request context.
// Returns nil if no user is authenticated.
func UserFromContext(ctx context.Context) *User {
	user, ok := ctx.Value(UserContextKey).(*User)
	if !ok {
		return nil
	}
	return user
}

// ClaimsFromContext retrieves the session claims from the request context.
// Returns nil if no claims are present.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// UserIDFromContext retrieves the user ID from the request context.
// Returns empty string if no user is authenticated.
func UserIDFromContext(ctx context.Context) string {
	user := UserFromContext(ctx)
	if user == nil {
		return ""
	}
	return user.ID
}

// ───────────────────────────────────────────────────────────────────────────────
// ERROR RESPONSE HELPER
// ───────────────────────────────────────────────────────────────────────────────

func writeAuthError(w http.ResponseWriter, err error) {
	authErr, ok := err.(*AuthError)
	if !ok {
		// Anything that is not an AuthError is a store failure.
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "temporary storage failure")
		return
	}

	status := http.StatusUnauthorized
	switch authErr {
	case ErrUserExists:
		status = http.StatusConflict
	case ErrWeakPassword, ErrMissingUsername:
		status = http.StatusBadRequest
	}

	writeError(w, status, authErr.Code, authErr.Message)
}
