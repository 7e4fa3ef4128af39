package server

import (
	"sync"

	"hubbub/internal/compat"
	"hubbub/internal/protocol/frame"
)

type member struct {
	queue   *Outbound
	profile *compat.Profile
}

// PushRegistry fans server-initiated transactions out to live connections.
// Each member pairs an outbound queue with the connection's compatibility
// profile so pushed text fields are encoded per recipient.
type PushRegistry struct {
	mu      sync.RWMutex
	members map[uint64]member
}

// NewPushRegistry returns an empty registry.
func NewPushRegistry() *PushRegistry {
	return &PushRegistry{members: make(map[uint64]member)}
}

// Register adds a connection's outbound queue and profile.
func (r *PushRegistry) Register(id uint64, q *Outbound, p *compat.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[id] = member{queue: q, profile: p}
}

// Unregister drops a connection at teardown.
func (r *PushRegistry) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, id)
}

// Push queues a transaction to one connection, reporting whether it was
// accepted.
func (r *PushRegistry) Push(id uint64, tx *frame.Transaction) bool {
	r.mu.RLock()
	m, ok := r.members[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return deliver(m, tx)
}

// Broadcast queues a transaction to every connection except the sender,
// returning the number of queues that accepted it.
func (r *PushRegistry) Broadcast(tx *frame.Transaction, except uint64) int {
	r.mu.RLock()
	targets := make([]member, 0, len(r.members))
	for id, m := range r.members {
		if id == except {
			continue
		}
		targets = append(targets, m)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, m := range targets {
		if deliver(m, tx) {
			delivered++
		}
	}
	return delivered
}

// deliver hands a recipient its own copy of the transaction, with text
// fields encoded for that client. Encoding failures drop the push for that
// recipient only.
func deliver(m member, tx *frame.Transaction) bool {
	payload, err := compat.EncodeFor(m.profile, tx.Payload)
	if err != nil {
		return false
	}
	clone := &frame.Transaction{Header: tx.Header, Payload: payload}
	clone.Header.TotalSize = uint32(len(payload))
	clone.Header.DataSize = uint32(len(payload))
	return m.queue.EnqueuePush(clone)
}

// Size returns the number of registered connections.
func (r *PushRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
