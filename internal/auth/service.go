package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Service provides authentication operations.
type Service struct {
	store  *Store
	config *Config
}

// NewService creates a new auth service.
func NewService(store *Store, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	return &Service{
		store:  store,
		config: config,
	}
}

// ───────────────────────────────────────────────────────────────────────────────
// SIGNUP & LOGIN
// ───────────────────────────────────────────────────────────────────────────────

// Signup creates a new user account. It does not log the user in; the
// client follows up with a login call.
func (s *Service) Signup(ctx context.Context, req *SignupRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrMissingUsername
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Username:     username,
		PasswordHash: string(hash),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login authenticates a user and returns a session token.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if err == ErrUserNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(s.config.SessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	token, err := s.issueToken(user, session)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &LoginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      user.ToResponse(),
	}, nil
}

// Logout revokes the session named by the token. Logging out with a token
// that is malformed or already revoked is not an error.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return nil
	}
	return s.store.DeleteSession(ctx, claims.ID)
}

// LogoutAll revokes every session for a user.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	return s.store.DeleteUserSessions(ctx, userID)
}

// ───────────────────────────────────────────────────────────────────────────────
// TOKEN VALIDATION
// ───────────────────────────────────────────────────────────────────────────────

// ValidateToken checks a session token against the sessions table and
// returns the owning user. A session used with less than half its TTL
// remaining is extended to a full TTL from now, so active users stay
// logged in without re-issuing tokens.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*User, *Claims, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.store.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	if session.ExpiresAt.Before(now) {
		s.store.DeleteSession(ctx, session.ID)
		return nil, nil, ErrSessionExpired
	}

	if session.ExpiresAt.Sub(now) < s.config.SessionTTL/2 {
		newExpiry := now.Add(s.config.SessionTTL)
		if err := s.store.ExtendSession(ctx, session.ID, newExpiry); err == nil {
			session.ExpiresAt = newExpiry
		}
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}

	return user, claims, nil
}

// CleanupExpiredSessions removes sessions past their expiry. Intended to
// be run periodically by the server.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.store.CleanupExpiredSessions(ctx)
}

// CountSessions returns the number of live sessions.
func (s *Service) CountSessions(ctx context.Context) (int, error) {
	return s.store.CountSessions(ctx)
}

// ───────────────────────────────────────────────────────────────────────────────
// TOKEN SIGNING
// ───────────────────────────────────────────────────────────────────────────────

func (s *Service) issueToken(user *User, session *Session) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID,
			ID:       session.ID,
			IssuedAt: jwt.NewNumericDate(session.CreatedAt),
		},
		Username: user.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *Service) parseClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
