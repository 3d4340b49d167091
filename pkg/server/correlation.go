package server

import (
	"sync"
	"time"
)

// correlationEntry tracks one in-flight command awaiting its response.
type correlationEntry struct {
	clientID string
	command  string
	started  time.Time
}

// correlationTracker holds command IDs between receipt and response.
// Entries that never complete (a handler crashed before answering) are
// swept once they outlive the command TTL, so the map stays bounded.
type correlationTracker struct {
	mu      sync.Mutex
	entries map[string]correlationEntry
}

func newCorrelationTracker() *correlationTracker {
	return &correlationTracker{entries: make(map[string]correlationEntry)}
}

// track inserts an entry for the command.
func (t *correlationTracker) track(commandID, clientID, command string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[commandID] = correlationEntry{
		clientID: clientID,
		command:  command,
		started:  time.Now(),
	}
}

// complete removes the entry and returns how long the command was
// in flight.
func (t *correlationTracker) complete(commandID string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[commandID]
	if !ok {
		return 0, false
	}
	delete(t.entries, commandID)
	return time.Since(entry.started), true
}

// len returns the number of in-flight commands.
func (t *correlationTracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// sweep drops entries older than ttl and returns how many were
// removed.
func (t *correlationTracker) sweep(ttl time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, entry := range t.entries {
		if entry.started.Before(cutoff) {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}
