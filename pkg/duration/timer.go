package duration

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidDuration is returned for zero or negative windows.
var ErrInvalidDuration = errors.New("invalid duration")

// window is one active entry.
type window struct {
	deadline time.Time
	timer    *time.Timer
}

// Manager tracks activity windows by key. All methods are safe for
// concurrent use.
type Manager struct {
	mu sync.Mutex

	// Active windows by key
	windows map[string]*window

	// Callback when a window expires without being cancelled
	onExpiry func(key string)
}

// NewManager creates an empty window manager.
func NewManager() *Manager {
	return &Manager{
		windows: make(map[string]*window),
	}
}

// Set opens or extends the window for a key. The window starts
// immediately and expires after d.
func (m *Manager) Set(key string, d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.windows[key]; exists {
		existing.timer.Stop()
	}

	w := &window{deadline: time.Now().Add(d)}
	w.timer = time.AfterFunc(d, func() {
		m.expire(key, w)
	})
	m.windows[key] = w
	return nil
}

// Cancel closes a window early without triggering the expiry callback.
// It reports whether the key was active.
func (m *Manager) Cancel(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, exists := m.windows[key]
	if !exists {
		return false
	}
	w.timer.Stop()
	delete(m.windows, key)
	return true
}

// CancelAll closes every window without triggering expiry callbacks.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, w := range m.windows {
		w.timer.Stop()
		delete(m.windows, key)
	}
}

// Active reports whether the key has an open window. The deadline is
// checked directly, so an answer never depends on timer scheduling lag.
func (m *Manager) Active(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, exists := m.windows[key]
	return exists && time.Now().Before(w.deadline)
}

// AnyActive reports whether any window is open.
func (m *Manager) AnyActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, w := range m.windows {
		if now.Before(w.deadline) {
			return true
		}
	}
	return false
}

// Remaining returns the time until the key's window expires, or zero
// when the key is not active.
func (m *Manager) Remaining(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, exists := m.windows[key]
	if !exists {
		return 0
	}
	remaining := time.Until(w.deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Count returns the number of open windows.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// OnExpiry sets the callback invoked when a window runs out on its own.
// Cancelled windows never fire it.
func (m *Manager) OnExpiry(fn func(key string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpiry = fn
}

// expire removes a window when its timer fires. A window replaced by a
// later Set is ignored.
func (m *Manager) expire(key string, w *window) {
	m.mu.Lock()

	current, exists := m.windows[key]
	if !exists || current != w {
		m.mu.Unlock()
		return
	}
	delete(m.windows, key)
	callback := m.onExpiry

	m.mu.Unlock()

	// Call callback outside lock
	if callback != nil {
		callback(key)
	}
}
