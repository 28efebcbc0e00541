package registry

import (
	"sync"

	"github.com/l2emu/core/internal/broker"
)

// HandlerRegistry maps a peer id to its current broker.Sink — the concrete
// type that satisfies the broker's generic Registry[K] interface. Snapshot
// returns a copy so a long-running fan-out never holds the registry lock.
type HandlerRegistry[K comparable] struct {
	mu    sync.RWMutex
	peers map[K]broker.Sink
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry[K comparable]() *HandlerRegistry[K] {
	return &HandlerRegistry[K]{peers: make(map[K]broker.Sink)}
}

// Register associates id with sink, replacing any prior sink for that id.
func (h *HandlerRegistry[K]) Register(id K, sink broker.Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[id] = sink
}

// Unregister removes id. A no-op if id was never registered.
func (h *HandlerRegistry[K]) Unregister(id K) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, id)
}

// Get returns the sink registered for id, if any.
func (h *HandlerRegistry[K]) Get(id K) (broker.Sink, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.peers[id]
	return s, ok
}

// Snapshot returns a point-in-time copy of the full id→sink map, safe to
// range over without holding the registry lock.
func (h *HandlerRegistry[K]) Snapshot() map[K]broker.Sink {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[K]broker.Sink, len(h.peers))
	for k, v := range h.peers {
		out[k] = v
	}
	return out
}

// Count returns the number of registered peers.
func (h *HandlerRegistry[K]) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}
