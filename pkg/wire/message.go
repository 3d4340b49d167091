package wire

import (
	"time"
)

// Message type markers. Every server-originated message carries one of
// these in its "type" field so clients can demultiplex on a single socket.
const (
	// TypeResponse marks a successful command response.
	TypeResponse = "response"

	// TypeError marks a command failure or an unparseable datagram.
	TypeError = "error"

	// TypeEvent marks an asynchronous event push.
	TypeEvent = "event"

	// TypeStatusUpdate marks a periodic status broadcast.
	TypeStatusUpdate = "status_update"
)

// Event types emitted by the server.
const (
	// EventPatternComplete signals a playback task ran to completion.
	EventPatternComplete = "pattern_complete"

	// EventPatternError signals a playback task failed mid-sequence.
	EventPatternError = "pattern_error"
)

// Command is a decoded command envelope. Immutable once parsed.
type Command struct {
	// Command is the command name (e.g. "ping", "activate_discrete").
	Command string `json:"command"`

	// Params holds the command parameters.
	Params Params `json:"params"`

	// CommandID correlates the eventual response with this command.
	// Defaults to a fresh UUID when the client omits it.
	CommandID string `json:"command_id"`

	// ClientID identifies the sender. Defaults to "host:port" of the
	// source address. Identity is asserted by the caller, not verified.
	ClientID string `json:"client_id"`
}

// Result is the payload a command handler produces. It is wrapped into a
// Response envelope before transmission.
type Result map[string]any

// OK returns a success result with the given extra fields merged in.
func OK(fields Result) Result {
	r := Result{"success": true}
	for k, v := range fields {
		r[k] = v
	}
	return r
}

// Fail returns a structured failure result. Validation and adapter errors
// use this shape rather than an error envelope, so the command itself still
// completes with a correlated response.
func Fail(reason string) Result {
	return Result{"success": false, "error": reason}
}

// Response is a successful command response envelope.
type Response struct {
	Type      string `json:"type"`
	CommandID string `json:"command_id"`
	Timestamp string `json:"timestamp"`
	Result    Result `json:"result"`
}

// ErrorResponse is a command failure envelope. CommandID is empty when the
// failure happened before the command ID could be extracted; such responses
// cannot be correlated, which is intentional.
type ErrorResponse struct {
	Type      string `json:"type"`
	CommandID string `json:"command_id,omitempty"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Event is an asynchronous notification envelope.
type Event struct {
	Type      string         `json:"type"`
	EventType string         `json:"event_type"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// StatusUpdate is a periodic status broadcast envelope.
type StatusUpdate struct {
	Type      string         `json:"type"`
	Status    map[string]any `json:"status"`
	Timestamp string         `json:"timestamp"`
}

// DiscoveryResponse answers a discovery probe with the server's identity.
type DiscoveryResponse struct {
	Type       string `json:"type"`
	ServerID   string `json:"server_id"`
	APIPort    int    `json:"api_port"`
	APIVersion string `json:"api_version"`
	Timestamp  string `json:"timestamp"`
}

// Timestamp formats t the way every envelope carries it (RFC 3339 with
// sub-second precision, matching what clients already parse).
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
