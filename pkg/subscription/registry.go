package subscription

import (
	"sync"
)

// Registry maps event types to the set of subscribed client IDs.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	byEvent map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byEvent: make(map[string]map[string]struct{}),
	}
}

// Subscribe adds the client to the event type's set. Subscribing twice
// is a no-op.
func (r *Registry) Subscribe(eventType, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byEvent[eventType]
	if !ok {
		set = make(map[string]struct{})
		r.byEvent[eventType] = set
	}
	set[clientID] = struct{}{}
}

// Unsubscribe removes the client from the event type's set and reports
// whether it was subscribed.
func (r *Registry) Unsubscribe(eventType, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byEvent[eventType]
	if !ok {
		return false
	}
	if _, subscribed := set[clientID]; !subscribed {
		return false
	}
	delete(set, clientID)
	if len(set) == 0 {
		delete(r.byEvent, eventType)
	}
	return true
}

// UnsubscribeAll removes the client from every event type and returns
// the event types it was removed from.
func (r *Registry) UnsubscribeAll(clientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for eventType, set := range r.byEvent {
		if _, ok := set[clientID]; ok {
			delete(set, clientID)
			removed = append(removed, eventType)
			if len(set) == 0 {
				delete(r.byEvent, eventType)
			}
		}
	}
	return removed
}

// Subscribers returns the client IDs subscribed to the event type.
func (r *Registry) Subscribers(eventType string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byEvent[eventType]
	out := make([]string, 0, len(set))
	for clientID := range set {
		out = append(out, clientID)
	}
	return out
}

// IsSubscribed reports whether the client is subscribed to the event
// type.
func (r *Registry) IsSubscribed(eventType, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEvent[eventType][clientID]
	return ok
}

// EventTypes returns all event types with at least one subscriber.
func (r *Registry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byEvent))
	for eventType := range r.byEvent {
		out = append(out, eventType)
	}
	return out
}

// Count returns the number of subscribers for the event type.
func (r *Registry) Count(eventType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEvent[eventType])
}
