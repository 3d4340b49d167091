package device

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/haptic-bridge/haptic-go/pkg/duration"
)

// SimulatedFrame records one submission made against a Simulator.
type SimulatedFrame struct {
	Key      string
	Position Position
	Dots     []DotPoint
	Path     []PathPoint
	Duration int
	At       time.Time
}

// Simulator is an in-memory Session. Submissions are recorded and keys
// stay active for their frame duration, so playback timing can be
// observed without hardware.
type Simulator struct {
	mu         sync.Mutex
	connected  bool
	positions  map[Position]bool
	active     *duration.Manager
	registered map[string]struct{}
	frames     []SimulatedFrame
}

// NewSimulator creates a simulator reporting all positions connected.
func NewSimulator() *Simulator {
	return &Simulator{
		positions: map[Position]bool{
			PositionVest:      true,
			PositionVestFront: true,
			PositionVestBack:  true,
			PositionForearmL:  true,
			PositionForearmR:  true,
			PositionGloveL:    true,
			PositionGloveR:    true,
		},
		active:     duration.NewManager(),
		registered: make(map[string]struct{}),
	}
}

// SetConnected overrides connectivity for a single position.
func (s *Simulator) SetConnected(pos Position, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[pos] = connected
}

// Frames returns a copy of all recorded submissions.
func (s *Simulator) Frames() []SimulatedFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SimulatedFrame, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *Simulator) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *Simulator) IsConnected(pos Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && s.positions[pos]
}

func (s *Simulator) SubmitDot(key string, pos Position, dots []DotPoint, durationMillis int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	s.frames = append(s.frames, SimulatedFrame{
		Key:      key,
		Position: pos,
		Dots:     append([]DotPoint(nil), dots...),
		Duration: durationMillis,
		At:       time.Now(),
	})
	_ = s.active.Set(key, time.Duration(durationMillis)*time.Millisecond)
	return nil
}

func (s *Simulator) SubmitPath(key string, pos Position, path []PathPoint, durationMillis int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	s.frames = append(s.frames, SimulatedFrame{
		Key:      key,
		Position: pos,
		Path:     append([]PathPoint(nil), path...),
		Duration: durationMillis,
		At:       time.Now(),
	})
	_ = s.active.Set(key, time.Duration(durationMillis)*time.Millisecond)
	return nil
}

// Register validates that the file exists and contains JSON, then marks
// the key registered.
func (s *Simulator) Register(key string, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return ErrInvalidTactFile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	s.registered[key] = struct{}{}
	return nil
}

func (s *Simulator) SubmitRegistered(key string, scale ScaleOption, rotation RotationOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	if _, ok := s.registered[key]; !ok {
		return ErrKeyNotRegistered
	}
	_ = s.active.Set(key, time.Second)
	return nil
}

func (s *Simulator) StopKey(key string) error {
	s.active.Cancel(key)
	return nil
}

func (s *Simulator) StopAll() error {
	s.active.CancelAll()
	return nil
}

func (s *Simulator) IsPlaying() bool {
	return s.active.AnyActive()
}

func (s *Simulator) IsPlayingKey(key string) bool {
	return s.active.Active(key)
}

func (s *Simulator) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.active.CancelAll()
	return nil
}
