// Package skills implements the connectors behind model-directed actions.
//
// Each skill serves one action type from the assistant's dispatch table
// (searchVideo, getWeather, sendWhatsApp, ...) and turns the directive
// parameters into a payload the client can render: an embed URL, a weather
// card, a link to open. Connectors that need credentials stay registered
// when none are configured and fail with ErrUpstreamUnavailable when
// invoked.
package skills

import (
	"context"
	"errors"
	"time"
)

// Action types the model may request. The registry dispatches on these
// names and the chat prompt advertises them to the model.
const (
	SearchVideo  = "searchVideo"
	SearchTrack  = "searchTrack"
	GetWeather   = "getWeather"
	GetTime      = "getTime"
	GetDate      = "getDate"
	SearchWeb    = "searchWeb"
	OpenWebsite  = "openWebsite"
	SendWhatsApp = "sendWhatsApp"
)

// Connector failures. The chat layer keeps the model's reply and drops the
// action on any of them; the split feeds logs and metrics.
var (
	// ErrUnknownSkill means no connector is registered for the action type.
	ErrUnknownSkill = errors.New("unknown skill")

	// ErrInvalidParams means the directive omitted or mangled a parameter
	// the connector requires.
	ErrInvalidParams = errors.New("invalid skill parameters")

	// ErrNotFound means the upstream answered but had nothing: an unknown
	// city, a search with no hits.
	ErrNotFound = errors.New("no matching result")

	// ErrUpstreamUnavailable means the connector is not configured, the
	// upstream could not be reached, or it returned a failure status.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// Skill is one connector in the assistant's dispatch table.
type Skill interface {
	// Name returns the action type this connector serves.
	Name() string

	// Invoke runs the connector with the parameters from the model's
	// directive and returns a payload for the client to render.
	Invoke(ctx context.Context, params map[string]string) (*Result, error)
}

// Result is the outcome of a successful invocation. Payload is merged into
// the action returned to the client.
type Result struct {
	// Skill is the action type that produced this result.
	Skill string `json:"skill"`

	// Payload carries the connector-specific fields, such as an embed URL
	// or a temperature.
	Payload map[string]interface{} `json:"payload"`

	// Duration is how long the invocation took.
	Duration time.Duration `json:"duration"`
}
