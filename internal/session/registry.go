package session

import (
	"sort"
	"sync"
	"time"

	"hubbub/internal/protocol"
)

// Registry owns the live session set. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	next     uint64
	sessions map[uint64]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uint64]*Session)}
}

// Add creates and tracks a session for a freshly handshaken connection.
func (r *Registry) Add(remoteAddr string, identity protocol.ClientIdentity) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	s := newSession(r.next, remoteAddr, identity, time.Now())
	r.sessions[s.id] = s
	return s
}

// Remove drops a session at connection close. Removing an unknown session
// is a no-op.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s.id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns session infos ordered by id.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	infos := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	r.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
