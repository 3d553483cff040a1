package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/peercall/peercall/internal/domain"
)

// Registry maps a live peer id to its sendable transport handle.
// It owns that mapping exclusively and nothing else.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.PeerID]SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.PeerID]SignalConnection)}
}

// Register is called once per new transport connection.
func (r *Registry) Register(id domain.PeerID, conn SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = conn
	log.Info().Str("module", "core.registry").Str("peer", string(id)).Msg("connection registered")
}

// Unregister removes the mapping. Calling it twice is a no-op.
func (r *Registry) Unregister(id domain.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)
	log.Info().Str("module", "core.registry").Str("peer", string(id)).Msg("connection unregistered")
}

// Resolve returns the handle for id. Absence is a normal condition:
// the peer may have disconnected while a relay was in flight.
func (r *Registry) Resolve(id domain.PeerID) (SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
