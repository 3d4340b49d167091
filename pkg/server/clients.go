package server

import (
	"net"
	"sync"
	"time"
)

// clientEntry is one known client.
type clientEntry struct {
	addr     *net.UDPAddr
	lastSeen time.Time
}

// clientRegistry maps client IDs to their last known address. A client
// exists from its first datagram until a send to it fails.
type clientRegistry struct {
	mu      sync.RWMutex
	clients map[string]clientEntry
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{clients: make(map[string]clientEntry)}
}

// touch records the client's address, returning true when the client
// is new.
func (r *clientRegistry) touch(clientID string, addr *net.UDPAddr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, known := r.clients[clientID]
	r.clients[clientID] = clientEntry{addr: addr, lastSeen: time.Now()}
	return !known
}

// addr returns the client's address, or nil for an unknown client.
func (r *clientRegistry) addr(clientID string) *net.UDPAddr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[clientID].addr
}

// remove drops the client.
func (r *clientRegistry) remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
}

// len returns the number of known clients.
func (r *clientRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// all returns a snapshot of client IDs and addresses.
func (r *clientRegistry) all() map[string]*net.UDPAddr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*net.UDPAddr, len(r.clients))
	for id, entry := range r.clients {
		out[id] = entry.addr
	}
	return out
}
