package device

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultPlayerURL is the feedback endpoint of a locally running
// bHaptics Player application.
const DefaultPlayerURL = "ws://127.0.0.1:15881/v2/feedbacks"

// PlayerConfig configures a PlayerClient.
type PlayerConfig struct {
	// URL is the WebSocket endpoint (default: DefaultPlayerURL).
	URL string

	// AppID identifies the application to the player.
	AppID string

	// AppName is the human-readable application name.
	AppName string

	// DialTimeout is the connection timeout (default: 5s).
	DialTimeout time.Duration

	// Logger receives client lifecycle logs (default: slog.Default()).
	Logger *slog.Logger

	// ReceiveLoop, when set, replaces the default state-tracking read
	// loop. It runs on its own goroutine after Connect and must return
	// when the client is closed.
	ReceiveLoop func(c *PlayerClient)
}

// playerState is the state message the player pushes after every
// submission and on device changes.
type playerState struct {
	RegisteredKeys     []string `json:"RegisteredKeys"`
	ActiveKeys         []string `json:"ActiveKeys"`
	ConnectedPositions []string `json:"ConnectedPositions"`
}

type submitRequest struct {
	Type       string        `json:"Type"`
	Key        string        `json:"Key,omitempty"`
	Frame      *frame        `json:"Frame,omitempty"`
	Parameters *submitParams `json:"Parameters,omitempty"`
}

type frame struct {
	Position       string      `json:"Position"`
	DotPoints      []dotPoint  `json:"DotPoints"`
	PathPoints     []pathPoint `json:"PathPoints"`
	DurationMillis int         `json:"DurationMillis"`
}

// The player expects capitalized field names in frames, unlike the
// bridge's own wire format.
type dotPoint struct {
	Index     int `json:"Index"`
	Intensity int `json:"Intensity"`
}

type pathPoint struct {
	X         float64 `json:"X"`
	Y         float64 `json:"Y"`
	Intensity int     `json:"Intensity"`
}

type submitParams struct {
	AltKey   string          `json:"altKey,omitempty"`
	Scale    *ScaleOption    `json:"scaleOption,omitempty"`
	Rotation *RotationOption `json:"rotationOption,omitempty"`
}

type registerRequest struct {
	Key     string          `json:"Key"`
	Project json.RawMessage `json:"Project"`
}

type playerRequest struct {
	Register []registerRequest `json:"Register,omitempty"`
	Submit   []submitRequest   `json:"Submit,omitempty"`
}

// PlayerClient is a Session backed by the bHaptics Player application.
type PlayerClient struct {
	config PlayerConfig
	logger *slog.Logger

	mu   sync.RWMutex
	conn *websocket.Conn

	// Guards writes; gorilla/websocket allows one concurrent writer.
	writeMu sync.Mutex

	closed      atomic.Bool
	destroyOnce sync.Once
	wg          sync.WaitGroup

	// State mirrored from player pushes.
	stateMu   sync.RWMutex
	active    map[string]struct{}
	positions map[string]struct{}
}

// NewPlayerClient creates a client for the player feedback endpoint.
func NewPlayerClient(config PlayerConfig) *PlayerClient {
	if config.URL == "" {
		config.URL = DefaultPlayerURL
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &PlayerClient{
		config:    config,
		logger:    config.Logger,
		active:    make(map[string]struct{}),
		positions: make(map[string]struct{}),
	}
}

// Connect dials the player and starts the receive loop.
func (c *PlayerClient) Connect(ctx context.Context) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.DialTimeout)
		defer cancel()
	}

	endpoint, err := url.Parse(c.config.URL)
	if err != nil {
		return fmt.Errorf("invalid player URL: %w", err)
	}
	q := endpoint.Query()
	if c.config.AppID != "" {
		q.Set("app_id", c.config.AppID)
	}
	if c.config.AppName != "" {
		q.Set("app_name", c.config.AppName)
	}
	endpoint.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("dial player: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.closed.Store(false)

	loop := c.config.ReceiveLoop
	if loop == nil {
		loop = (*PlayerClient).receiveLoop
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		loop(c)
	}()

	c.logger.Info("connected to player", "url", c.config.URL)
	return nil
}

// receiveLoop reads state pushes until the client is closed. The closed
// flag is the termination signal; read errors after close are expected
// and not logged.
func (c *PlayerClient) receiveLoop() {
	for !c.closed.Load() {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.logger.Warn("player read failed", "error", err)
			}
			return
		}

		var state playerState
		if err := json.Unmarshal(data, &state); err != nil {
			c.logger.Debug("unparseable player message", "error", err)
			continue
		}
		c.applyState(state)
	}
}

func (c *PlayerClient) applyState(state playerState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.active = make(map[string]struct{}, len(state.ActiveKeys))
	for _, k := range state.ActiveKeys {
		c.active[k] = struct{}{}
	}
	c.positions = make(map[string]struct{}, len(state.ConnectedPositions))
	for _, p := range state.ConnectedPositions {
		c.positions[p] = struct{}{}
	}
}

func (c *PlayerClient) send(req playerRequest) error {
	if c.closed.Load() {
		return ErrNotConnected
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(req)
}

// IsConnected reports whether the player sees a device at the position.
// PositionVest also matches the front and back panels since the player
// reports the vest as one device.
func (c *PlayerClient) IsConnected(pos Position) bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if _, ok := c.positions[pos.String()]; ok {
		return true
	}
	if pos == PositionVestFront || pos == PositionVestBack {
		_, ok := c.positions[PositionVest.String()]
		return ok
	}
	return false
}

// SubmitDot plays motor activations by index.
func (c *PlayerClient) SubmitDot(key string, pos Position, dots []DotPoint, duration int) error {
	f := &frame{
		Position:       pos.String(),
		DotPoints:      make([]dotPoint, len(dots)),
		PathPoints:     []pathPoint{},
		DurationMillis: duration,
	}
	for i, d := range dots {
		f.DotPoints[i] = dotPoint{Index: d.Index, Intensity: d.Intensity}
	}
	return c.send(playerRequest{
		Submit: []submitRequest{{Type: "frame", Key: key, Frame: f}},
	})
}

// SubmitPath plays coordinate-based activations.
func (c *PlayerClient) SubmitPath(key string, pos Position, path []PathPoint, duration int) error {
	f := &frame{
		Position:       pos.String(),
		DotPoints:      []dotPoint{},
		PathPoints:     make([]pathPoint, len(path)),
		DurationMillis: duration,
	}
	for i, p := range path {
		f.PathPoints[i] = pathPoint{X: p.X, Y: p.Y, Intensity: p.Intensity}
	}
	return c.send(playerRequest{
		Submit: []submitRequest{{Type: "frame", Key: key, Frame: f}},
	})
}

// Register reads a tact file from disk and registers its project under
// the given key.
func (c *PlayerClient) Register(key string, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tact file: %w", err)
	}

	// Tact files carry the playable definition under "project"; older
	// exports are the bare project object.
	var wrapper struct {
		Project json.RawMessage `json:"project"`
	}
	project := json.RawMessage(data)
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("parse tact file: %w", err)
	}
	if len(wrapper.Project) > 0 {
		project = wrapper.Project
	}

	return c.send(playerRequest{
		Register: []registerRequest{{Key: key, Project: project}},
	})
}

// SubmitRegistered plays a registered pattern with optional scaling and
// rotation.
func (c *PlayerClient) SubmitRegistered(key string, scale ScaleOption, rotation RotationOption) error {
	req := submitRequest{Type: "key", Key: key}
	if scale != DefaultScale || rotation != (RotationOption{}) {
		req.Parameters = &submitParams{
			AltKey:   key,
			Scale:    &scale,
			Rotation: &rotation,
		}
	}
	return c.send(playerRequest{Submit: []submitRequest{req}})
}

// StopKey stops playback submitted under key.
func (c *PlayerClient) StopKey(key string) error {
	return c.send(playerRequest{
		Submit: []submitRequest{{Type: "turnOff", Key: key}},
	})
}

// StopAll stops all active playback.
func (c *PlayerClient) StopAll() error {
	return c.send(playerRequest{
		Submit: []submitRequest{{Type: "turnOffAll"}},
	})
}

// IsPlaying reports whether any key is active.
func (c *PlayerClient) IsPlaying() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return len(c.active) > 0
}

// IsPlayingKey reports whether the given key is active.
func (c *PlayerClient) IsPlayingKey(key string) bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	_, ok := c.active[key]
	return ok
}

// Destroy closes the connection and waits for the receive loop to exit.
// Subsequent calls are no-ops.
func (c *PlayerClient) Destroy() error {
	c.destroyOnce.Do(func() {
		c.closed.Store(true)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			c.writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.writeMu.Unlock()
			_ = conn.Close()
		}

		c.wg.Wait()
		c.logger.Info("player session destroyed")
	})
	return nil
}
