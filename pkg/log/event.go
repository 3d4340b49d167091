package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ClientID identifies the client involved, when known.
	ClientID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates datagram flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port), when known.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Command     *CommandEvent     `cbor:"7,keyasint,omitempty"`  // Command dispatch
	Push        *PushEvent        `cbor:"8,keyasint,omitempty"`  // Event/status push
	StateChange *StateChangeEvent `cbor:"9,keyasint,omitempty"`  // Server/task state
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of datagram flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming datagram.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing datagram.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the UDP socket layer (raw datagrams).
	LayerTransport Layer = 0
	// LayerWire is the JSON envelope layer.
	LayerWire Layer = 1
	// LayerServer is the command/handler layer.
	LayerServer Layer = 2
	// LayerDevice is the device session layer.
	LayerDevice Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerServer:
		return "SERVER"
	case LayerDevice:
		return "DEVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryCommand indicates a command or its response.
	CategoryCommand Category = 0
	// CategoryPush indicates an event or status push to a client.
	CategoryPush Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryPush:
		return "PUSH"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CommandEvent captures a command dispatch or completion.
type CommandEvent struct {
	// Name is the command name (e.g. "activate_discrete").
	Name string `cbor:"1,keyasint"`

	// CommandID is the correlation ID.
	CommandID string `cbor:"2,keyasint,omitempty"`

	// Outcome is "ok", "error" or "abandoned"; empty for dispatch events.
	Outcome string `cbor:"3,keyasint,omitempty"`

	// ProcessingTime is how long the handler ran (completions only).
	ProcessingTime *time.Duration `cbor:"4,keyasint,omitempty"`
}

// PushEvent captures an outbound event or status push.
type PushEvent struct {
	// EventType is the pushed event type; "status_update" for status.
	EventType string `cbor:"1,keyasint"`

	// Recipients is how many clients the push was sent to.
	Recipients int `cbor:"2,keyasint,omitempty"`
}

// StateChangeEvent captures a server or playback-task state transition.
type StateChangeEvent struct {
	// Entity is what changed state.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state name (may be empty for creation).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state name.
	NewState string `cbor:"3,keyasint"`

	// Reason provides optional context.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity identifies what kind of entity changed state.
type StateEntity uint8

const (
	// StateEntityServer is the server lifecycle.
	StateEntityServer StateEntity = 0
	// StateEntityClient is a client registry entry.
	StateEntityClient StateEntity = 1
	// StateEntityPlayback is a playback task.
	StateEntityPlayback StateEntity = 2
	// StateEntitySession is the device session.
	StateEntitySession StateEntity = 3
)

// String returns the entity name.
func (e StateEntity) String() string {
	switch e {
	case StateEntityServer:
		return "SERVER"
	case StateEntityClient:
		return "CLIENT"
	case StateEntityPlayback:
		return "PLAYBACK"
	case StateEntitySession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures error details.
type ErrorEventData struct {
	// Layer where the error originated.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`

	// Context describes what was being attempted.
	Context string `cbor:"3,keyasint,omitempty"`
}
