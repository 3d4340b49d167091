package device

import (
	"context"
	"errors"
)

// Position identifies a device placement on the body.
type Position int

const (
	PositionVest Position = iota
	PositionVestFront
	PositionVestBack
	PositionForearmL
	PositionForearmR
	PositionGloveL
	PositionGloveR
)

// String returns the wire name of the position as the player expects it.
func (p Position) String() string {
	switch p {
	case PositionVest:
		return "Vest"
	case PositionVestFront:
		return "VestFront"
	case PositionVestBack:
		return "VestBack"
	case PositionForearmL:
		return "ForearmL"
	case PositionForearmR:
		return "ForearmR"
	case PositionGloveL:
		return "GloveL"
	case PositionGloveR:
		return "GloveR"
	default:
		return "Unknown"
	}
}

// ParsePosition converts a wire name into a Position.
func ParsePosition(s string) (Position, error) {
	switch s {
	case "Vest":
		return PositionVest, nil
	case "VestFront":
		return PositionVestFront, nil
	case "VestBack":
		return PositionVestBack, nil
	case "ForearmL":
		return PositionForearmL, nil
	case "ForearmR":
		return PositionForearmR, nil
	case "GloveL":
		return PositionGloveL, nil
	case "GloveR":
		return PositionGloveR, nil
	default:
		return 0, ErrUnknownPosition
	}
}

// DotPoint activates a single motor by index.
type DotPoint struct {
	Index     int `json:"index"`
	Intensity int `json:"intensity"`
}

// PathPoint activates motors around a normalized coordinate. The player
// interpolates intensity across the motors nearest to (X, Y).
type PathPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Intensity int     `json:"intensity"`
}

// ScaleOption adjusts a registered pattern at submit time.
type ScaleOption struct {
	Intensity float64 `json:"intensity"`
	Duration  float64 `json:"duration"`
}

// RotationOption rotates a registered vest pattern at submit time.
type RotationOption struct {
	OffsetAngleX float64 `json:"offsetAngleX"`
	OffsetY      float64 `json:"offsetY"`
}

// DefaultScale leaves a registered pattern unmodified.
var DefaultScale = ScaleOption{Intensity: 1.0, Duration: 1.0}

var (
	// ErrNotConnected is returned when a session operation is attempted
	// before Connect succeeded or after Destroy.
	ErrNotConnected = errors.New("device: session not connected")

	// ErrUnknownPosition is returned for a position name the device
	// does not recognize.
	ErrUnknownPosition = errors.New("device: unknown position")

	// ErrInvalidTactFile is returned when a tact file cannot be parsed.
	ErrInvalidTactFile = errors.New("device: invalid tact file")

	// ErrKeyNotRegistered is returned when playing a key that was never
	// registered.
	ErrKeyNotRegistered = errors.New("device: key not registered")
)

// Session is a connection to a haptic playback backend.
//
// Implementations must be safe for concurrent use; the bridge submits
// frames from multiple playback goroutines at once.
type Session interface {
	// Connect establishes the session.
	Connect(ctx context.Context) error

	// IsConnected reports whether a device is present at the position.
	IsConnected(pos Position) bool

	// SubmitDot plays motor activations by index for the duration.
	SubmitDot(key string, pos Position, dots []DotPoint, duration int) error

	// SubmitPath plays coordinate-based activations for the duration.
	SubmitPath(key string, pos Position, path []PathPoint, duration int) error

	// Register loads a tact file and registers it under key.
	Register(key string, path string) error

	// SubmitRegistered plays a previously registered pattern.
	SubmitRegistered(key string, scale ScaleOption, rotation RotationOption) error

	// StopKey stops playback submitted under key.
	StopKey(key string) error

	// StopAll stops all active playback.
	StopAll() error

	// IsPlaying reports whether any playback is active.
	IsPlaying() bool

	// IsPlayingKey reports whether playback under key is active.
	IsPlayingKey(key string) bool

	// Destroy tears down the session. It is safe to call more than once.
	Destroy() error
}
