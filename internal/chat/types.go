// Package chat implements the conversation turn pipeline for Maestro:
// prompt assembly from stored history, the model call, parsing of the
// model's JSON directive, dispatch to the matching skill connector, and
// persistence of the turn. One turn is one synchronous round trip; the
// model decides the single skill (or none) in one shot.
package chat

import (
	"errors"
	"time"
)

// Action is the structured directive attached to an assistant reply. The
// client renders it as an embedded player, a weather card, or a link,
// depending on Type. Params starts as the model's arguments and is
// replaced by the connector's result payload on success.
type Action struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params"`
}

// TurnResponse is the outcome of one chat turn. Action is null when the
// turn was plain conversation or the requested action could not be
// completed.
type TurnResponse struct {
	Reply  string  `json:"reply"`
	Action *Action `json:"action"`
}

// HistoryEntry is one stored message as returned by the history endpoint.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Action    *Action   `json:"action,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn failures. Everything else the pipeline can run into (model
// transport errors, malformed directives, connector failures) degrades to
// a best-effort reply instead of failing the turn.
var (
	// ErrEmptyMessage means the user sent nothing to respond to.
	ErrEmptyMessage = errors.New("empty message")

	// ErrStoreUnavailable means conversation history could not be read;
	// without context the turn cannot proceed.
	ErrStoreUnavailable = errors.New("conversation store unavailable")

	// ErrMalformedModelResponse means the model's output did not match
	// the directive contract. The dispatcher converts it into an apology
	// reply; it never surfaces to the client as a failed request.
	ErrMalformedModelResponse = errors.New("malformed model response")
)

// apologyReply is returned when the model call fails or its output cannot
// be parsed. The user always gets a reply.
const apologyReply = "I'm having a little trouble understanding. Could you rephrase that?"
