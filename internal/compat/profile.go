// Package compat adapts requests and replies to client-specific quirks.
// The dispatcher guarantees its two hooks run exactly once per transaction,
// in order, so domain handlers only ever see canonical values.
package compat

import (
	"sync/atomic"

	"hubbub/internal/protocol"
)

// Kind classifies a client for compatibility decisions.
type Kind int

const (
	// KindUnknown means the login version has not been observed yet.
	KindUnknown Kind = iota
	// KindSynHX is the SynHX client, identified by handshake sub-version 2.
	KindSynHX
	// KindLegacy is the 1.8.5 client line (login version below 190).
	KindLegacy
	// KindModern is the 1.9 client line (login version 190 and up).
	KindModern
)

func (k Kind) String() string {
	switch k {
	case KindSynHX:
		return "synhx"
	case KindLegacy:
		return "legacy"
	case KindModern:
		return "modern"
	}
	return "unknown"
}

const (
	synHXSubVersion  uint16 = 2
	modernMinVersion uint16 = 190
	unknownVersion   uint32 = 1 << 16
)

// Profile is the per-connection compatibility state. It is seeded from the
// handshake, refined by the login request's version field, and immutable in
// its handshake-derived part for the connection's lifetime.
type Profile struct {
	subVersion   uint16
	loginVersion atomic.Uint32
	xorEnabled   atomic.Bool
}

// NewProfile seeds a profile from the negotiated client identity.
func NewProfile(id protocol.ClientIdentity) *Profile {
	p := &Profile{subVersion: id.SubVersion}
	p.loginVersion.Store(unknownVersion)
	return p
}

// RecordLoginVersion stores the client version observed in a login request.
func (p *Profile) RecordLoginVersion(version uint16) {
	p.loginVersion.Store(uint32(version))
}

// LoginVersion returns the recorded login version, if observed.
func (p *Profile) LoginVersion() (uint16, bool) {
	v := p.loginVersion.Load()
	if v == unknownVersion {
		return 0, false
	}
	return uint16(v), true
}

// Kind classifies the client from handshake and login metadata.
func (p *Profile) Kind() Kind {
	if p.subVersion == synHXSubVersion {
		return KindSynHX
	}
	v, ok := p.LoginVersion()
	switch {
	case !ok:
		return KindUnknown
	case v >= modernMinVersion:
		return KindModern
	default:
		return KindLegacy
	}
}

// WantsLoginExtras reports whether login replies to this client should be
// augmented with banner and server-name fields. SynHX clients reject the
// extra fields.
func (p *Profile) WantsLoginExtras() bool {
	k := p.Kind()
	return k == KindLegacy || k == KindModern
}

// XOREnabled reports whether the XOR text obfuscation has been detected on
// this connection. Once on, it stays on.
func (p *Profile) XOREnabled() bool { return p.xorEnabled.Load() }

func (p *Profile) enableXOR() { p.xorEnabled.Store(true) }
