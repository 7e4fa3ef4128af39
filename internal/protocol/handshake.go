package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	// PreambleLen is the size of the client handshake preamble.
	PreambleLen = 12
	// HandshakeReplyLen is the size of the server acknowledgement.
	HandshakeReplyLen = 8
	// Version is the protocol version this server accepts.
	Version uint16 = 1
	// HandshakeTimeout bounds how long a fresh connection may sit idle
	// before sending its preamble.
	HandshakeTimeout = 5 * time.Second
)

// ProtocolTag is the fixed 4-byte magic opening every preamble and reply.
var ProtocolTag = [4]byte{'T', 'R', 'T', 'P'}

// Handshake acknowledgement codes.
const (
	HandshakeOK                 uint32 = 0
	HandshakeErrInvalidProtocol uint32 = 1
	HandshakeErrBadVersion      uint32 = 2
	HandshakeErrTimeout         uint32 = 3
)

var (
	ErrInvalidProtocol    = errors.New("protocol: invalid protocol tag")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
)

// ClientIdentity holds the metadata negotiated during the handshake. It is
// immutable for the life of the connection.
type ClientIdentity struct {
	SubProtocol uint32
	Version     uint16
	SubVersion  uint16
}

// SubProtocolTag returns the four-byte sub-protocol tag in wire order.
func (c ClientIdentity) SubProtocolTag() [4]byte {
	var tag [4]byte
	binary.BigEndian.PutUint32(tag[:], c.SubProtocol)
	return tag
}

// ParsePreamble validates the 12-byte preamble and extracts the client
// identity. The protocol tag must match and the version must be supported.
func ParsePreamble(buf []byte) (ClientIdentity, error) {
	if len(buf) != PreambleLen {
		return ClientIdentity{}, fmt.Errorf("protocol: preamble is %d bytes, want %d", len(buf), PreambleLen)
	}
	if [4]byte(buf[0:4]) != ProtocolTag {
		return ClientIdentity{}, ErrInvalidProtocol
	}
	id := ClientIdentity{
		SubProtocol: binary.BigEndian.Uint32(buf[4:8]),
		Version:     binary.BigEndian.Uint16(buf[8:10]),
		SubVersion:  binary.BigEndian.Uint16(buf[10:12]),
	}
	if id.Version != Version {
		return ClientIdentity{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, id.Version)
	}
	return id, nil
}

// HandshakeCodeFor maps a preamble validation failure to its wire code.
func HandshakeCodeFor(err error) uint32 {
	switch {
	case errors.Is(err, ErrInvalidProtocol):
		return HandshakeErrInvalidProtocol
	case errors.Is(err, ErrUnsupportedVersion):
		return HandshakeErrBadVersion
	default:
		return HandshakeErrInvalidProtocol
	}
}

// WriteHandshakeReply emits the 8-byte acknowledgement: the protocol tag
// followed by a big-endian error code. HandshakeOK accepts the connection;
// every other code precedes a close.
func WriteHandshakeReply(w io.Writer, code uint32) error {
	var buf [HandshakeReplyLen]byte
	copy(buf[0:4], ProtocolTag[:])
	binary.BigEndian.PutUint32(buf[4:8], code)
	_, err := w.Write(buf[:])
	return err
}
