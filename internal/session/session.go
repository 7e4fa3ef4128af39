// Package session tracks per-connection state from handshake to close.
package session

import (
	"errors"
	"sync"
	"time"

	"hubbub/internal/compat"
	"hubbub/internal/protocol"
)

var (
	ErrNotAuthenticated       = errors.New("session: not authenticated")
	ErrInsufficientPrivileges = errors.New("session: insufficient privileges")
)

// Session is the mutable state of one accepted connection. The identity and
// compatibility profile are fixed at handshake time; authentication state
// and activity are guarded by the mutex.
type Session struct {
	id          uint64
	remoteAddr  string
	identity    protocol.ClientIdentity
	profile     *compat.Profile
	connectedAt time.Time

	mu            sync.Mutex
	user          string
	authenticated bool
	privileges    Privileges
	lastActivity  time.Time
}

// Info is a point-in-time snapshot of a session, safe to serialise.
type Info struct {
	ID            uint64    `json:"id"`
	RemoteAddr    string    `json:"remote_addr"`
	Client        string    `json:"client"`
	User          string    `json:"user,omitempty"`
	Authenticated bool      `json:"authenticated"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastActivity  time.Time `json:"last_activity"`
}

func newSession(id uint64, remoteAddr string, identity protocol.ClientIdentity, now time.Time) *Session {
	return &Session{
		id:           id,
		remoteAddr:   remoteAddr,
		identity:     identity,
		profile:      compat.NewProfile(identity),
		connectedAt:  now,
		lastActivity: now,
	}
}

// ID returns the registry-assigned session id.
func (s *Session) ID() uint64 { return s.id }

// RemoteAddr returns the peer address captured at accept time.
func (s *Session) RemoteAddr() string { return s.remoteAddr }

// Identity returns the handshake-negotiated client identity.
func (s *Session) Identity() protocol.ClientIdentity { return s.identity }

// Compat returns the connection's compatibility profile.
func (s *Session) Compat() *compat.Profile { return s.profile }

// Authenticate marks the session as logged in under the given account with
// the given privilege grant.
func (s *Session) Authenticate(user string, privileges Privileges) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.authenticated = true
	s.privileges = privileges
}

// Privileges returns the session's privilege grant. Empty before login.
func (s *Session) Privileges() Privileges {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.privileges
}

// RequirePrivilege distinguishes the two access failures: not logged in at
// all, or logged in without the needed bit. A nil return grants access.
func (s *Session) RequirePrivilege(want Privileges) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		return ErrNotAuthenticated
	}
	if !s.privileges.Has(want) {
		return ErrInsufficientPrivileges
	}
	return nil
}

// Authenticated reports whether a login has succeeded on this session.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// User returns the authenticated account name, or "" before login.
func (s *Session) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Touch records request activity on the session.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// LastActivity returns the time of the most recent request.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Info snapshots the session for reporting.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:            s.id,
		RemoteAddr:    s.remoteAddr,
		Client:        s.profile.Kind().String(),
		User:          s.user,
		Authenticated: s.authenticated,
		ConnectedAt:   s.connectedAt,
		LastActivity:  s.lastActivity,
	}
}
