// Package data provides the unified data access layer for Maestro.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message roles. Every stored message is one or the other.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a user's conversation history.
// Messages are immutable once written.
type Message struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	ActionJSON string    `json:"action_json,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// MESSAGE OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// SaveMessage inserts a single message. ID and CreatedAt are filled in
// when empty.
func (s *Store) SaveMessage(ctx context.Context, msg *Message) error {
	if msg.UserID == "" {
		return fmt.Errorf("message user ID cannot be empty")
	}
	if msg.Role != RoleUser && msg.Role != RoleAssistant {
		return fmt.Errorf("invalid message role: %s", msg.Role)
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (id, user_id, role, content, action_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.UserID, msg.Role, msg.Content,
		nullString(msg.ActionJSON), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

// AppendTurn persists one conversation turn atomically: the user's message
// followed by the assistant's reply. When keep is positive, rows beyond the
// newest keep are pruned for that user in the same transaction.
func (s *Store) AppendTurn(ctx context.Context, userMsg, assistantMsg *Message, keep int) error {
	if userMsg.UserID == "" || assistantMsg.UserID == "" {
		return fmt.Errorf("turn messages must carry a user ID")
	}
	if userMsg.UserID != assistantMsg.UserID {
		return fmt.Errorf("turn messages must belong to the same user")
	}

	now := time.Now().UTC()

	userMsg.Role = RoleUser
	if userMsg.ID == "" {
		userMsg.ID = uuid.New().String()
	}
	if userMsg.CreatedAt.IsZero() {
		userMsg.CreatedAt = now
	}

	assistantMsg.Role = RoleAssistant
	if assistantMsg.ID == "" {
		assistantMsg.ID = uuid.New().String()
	}
	if assistantMsg.CreatedAt.IsZero() {
		// The reply always sorts after the message that produced it.
		assistantMsg.CreatedAt = userMsg.CreatedAt.Add(time.Microsecond)
	}

	insert := `
		INSERT INTO messages (id, user_id, role, content, action_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insert,
			userMsg.ID, userMsg.UserID, userMsg.Role, userMsg.Content,
			nullString(userMsg.ActionJSON), userMsg.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert user message: %w", err)
		}

		if _, err := tx.ExecContext(ctx, insert,
			assistantMsg.ID, assistantMsg.UserID, assistantMsg.Role, assistantMsg.Content,
			nullString(assistantMsg.ActionJSON), assistantMsg.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert assistant message: %w", err)
		}

		if keep > 0 {
			prune := `
				DELETE FROM messages
				WHERE user_id = ?
				  AND id NOT IN (
					SELECT id FROM messages
					WHERE user_id = ?
					ORDER BY rowid DESC
					LIMIT ?
				  )
			`
			if _, err := tx.ExecContext(ctx, prune, userMsg.UserID, userMsg.UserID, keep); err != nil {
				return fmt.Errorf("prune history: %w", err)
			}
		}

		return nil
	})
}

// ListRecentMessages returns the newest limit messages for a user in
// chronological (oldest-first) order.
func (s *Store) ListRecentMessages(ctx context.Context, userID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 20
	}

	// Insert order is chronological order; rowid avoids ties between the
	// two rows written in one turn.
	query := `
		SELECT id, user_id, role, content, action_json, created_at
		FROM messages
		WHERE user_id = ?
		ORDER BY rowid DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var actionJSON sql.NullString

		err := rows.Scan(&msg.ID, &msg.UserID, &msg.Role, &msg.Content, &actionJSON, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		if actionJSON.Valid {
			msg.ActionJSON = actionJSON.String
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Query returns newest-first; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// CountMessages returns how many messages a user has stored.
func (s *Store) CountMessages(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE user_id = ?`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// ClearMessages deletes all of a user's conversation history.
func (s *Store) ClearMessages(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ═══════════════════════════════════════════════════════════════════════════════

// nullString converts a string to sql.NullString.
// Returns NULL if the string is empty.
func nullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}
