// Package auth provides user accounts and session management for Maestro.
// Passwords are stored as bcrypt hashes and sessions are issued as signed
// JWT bearer tokens whose lifecycle is tracked in the database, so logout
// and expiry are enforced server-side rather than by the token alone.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents a registered user in the system.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
}

// Session represents an active login. One row per issued token; deleting
// the row revokes the token regardless of what the token itself says.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Claims are the JWT claims carried by a session token. Subject is the
// user ID and ID (jti) is the session row, which is the source of truth
// for expiry. The token itself carries no exp claim so the session can be
// extended without re-issuing it.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// ───────────────────────────────────────────────────────────────────────────────
// REQUEST/RESPONSE TYPES
// ───────────────────────────────────────────────────────────────────────────────

// SignupRequest is the payload for account creation.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response for a successful login.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *UserResponse `json:"user"`
}

// UserResponse is a user representation without sensitive data.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts a User to a safe UserResponse.
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

// ───────────────────────────────────────────────────────────────────────────────
// ERROR TYPES
// ───────────────────────────────────────────────────────────────────────────────

// AuthError represents an authentication-related error.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// Common auth errors
var (
	ErrInvalidCredentials = &AuthError{Code: "INVALID_CREDENTIALS", Message: "invalid username or password"}
	ErrUserNotFound       = &AuthError{Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrUserExists         = &AuthError{Code: "USER_EXISTS", Message: "username already exists"}
	ErrInvalidToken       = &AuthError{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrSessionExpired     = &AuthError{Code: "SESSION_EXPIRED", Message: "session has expired"}
	ErrMissingToken       = &AuthError{Code: "MISSING_TOKEN", Message: "authorization token required"}
	ErrWeakPassword       = &AuthError{Code: "WEAK_PASSWORD", Message: "password must be at least 8 characters"}
	ErrMissingUsername    = &AuthError{Code: "MISSING_USERNAME", Message: "username is required"}
)

// ───────────────────────────────────────────────────────────────────────────────
// CONFIG
// ───────────────────────────────────────────────────────────────────────────────

// Config holds authentication configuration.
type Config struct {
	// Secret is the key for signing session tokens.
	// Must be set; the server refuses to start without one.
	Secret string

	// SessionTTL is how long a session lives without activity. Sessions
	// are extended on use once less than half the TTL remains.
	SessionTTL time.Duration

	// BcryptCost is the cost factor for bcrypt password hashing.
	BcryptCost int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Secret:     "", // Must be set!
		SessionTTL: 24 * time.Hour,
		BcryptCost: 12,
	}
}
