// Package frame implements the transaction frame codec: the fixed 20-byte
// header, multi-fragment reassembly, fragmenting writes, and streaming
// variants for payloads too large to buffer.
package frame

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	// HeaderLen is the size of the fixed frame header.
	HeaderLen = 20
	// MaxFrameData is the largest payload slice one physical frame may
	// carry.
	MaxFrameData = 32 * 1024
	// DefaultMaxPayload bounds buffered transaction payloads. Streaming
	// callers may configure a larger limit.
	DefaultMaxPayload = 1024 * 1024
)

var (
	ErrInvalidFlags    = errors.New("frame: invalid flags")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrFrameTooLarge   = errors.New("frame: fragment exceeds frame limit")
	ErrSizeMismatch    = errors.New("frame: size mismatch")
	ErrHeaderMismatch  = errors.New("frame: continuation header mismatch")
	ErrShortHeader     = errors.New("frame: short header")
)

// Header is the fixed wire header carried by every physical frame.
// All multi-byte fields are big-endian.
type Header struct {
	Flags     uint8
	IsReply   uint8
	Type      uint16
	ID        uint32
	Error     uint32
	TotalSize uint32
	DataSize  uint32
}

// Transaction is a complete logical message: a header plus the payload
// assembled from every fragment. TotalSize always equals len(Payload).
type Transaction struct {
	Header  Header
	Payload []byte
}

// DecodeHeader parses a header from exactly HeaderLen bytes.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) != HeaderLen {
		return Header{}, ErrShortHeader
	}
	return Header{
		Flags:     buf[0],
		IsReply:   buf[1],
		Type:      binary.BigEndian.Uint16(buf[2:4]),
		ID:        binary.BigEndian.Uint32(buf[4:8]),
		Error:     binary.BigEndian.Uint32(buf[8:12]),
		TotalSize: binary.BigEndian.Uint32(buf[12:16]),
		DataSize:  binary.BigEndian.Uint32(buf[16:20]),
	}, nil
}

// EncodeHeader serialises a header into a fresh HeaderLen-byte slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	buf[0] = h.Flags
	buf[1] = h.IsReply
	binary.BigEndian.PutUint16(buf[2:4], h.Type)
	binary.BigEndian.PutUint32(buf[4:8], h.ID)
	binary.BigEndian.PutUint32(buf[8:12], h.Error)
	binary.BigEndian.PutUint32(buf[12:16], h.TotalSize)
	binary.BigEndian.PutUint32(buf[16:20], h.DataSize)
	return buf
}

// ReplyHeader builds the header for a reply mirroring req: same type and
// correlation id, is_reply set, the given error code, and sizes covering
// payloadLen.
func ReplyHeader(req Header, errCode uint32, payloadLen int) Header {
	return Header{
		Flags:     0,
		IsReply:   1,
		Type:      req.Type,
		ID:        req.ID,
		Error:     errCode,
		TotalSize: uint32(payloadLen),
		DataSize:  uint32(payloadLen),
	}
}

// validateFirst enforces the header invariants for a transaction's first
// fragment.
func validateFirst(h Header, maxPayload int) error {
	if h.Flags != 0 {
		return ErrInvalidFlags
	}
	if int64(h.TotalSize) > int64(maxPayload) {
		return ErrPayloadTooLarge
	}
	if h.DataSize > h.TotalSize {
		return ErrSizeMismatch
	}
	if h.DataSize == 0 && h.TotalSize > 0 {
		return ErrSizeMismatch
	}
	return nil
}

// headersMatch reports whether a continuation header repeats the first
// fragment's header. Only DataSize may differ between fragments.
func headersMatch(first, next Header) bool {
	return next.Flags == first.Flags &&
		next.IsReply == first.IsReply &&
		next.Type == first.Type &&
		next.ID == first.ID &&
		next.Error == first.Error &&
		next.TotalSize == first.TotalSize
}

// validateContinuation enforces the invariants for a continuation fragment
// given the bytes still owed to the transaction.
func validateContinuation(first, next Header, remaining uint32) error {
	if !headersMatch(first, next) {
		return ErrHeaderMismatch
	}
	if next.DataSize == 0 || next.DataSize > remaining {
		return ErrSizeMismatch
	}
	return nil
}

// readFrame reads one physical frame: the header plus DataSize payload
// bytes. The per-fragment limit is enforced before any allocation.
func readFrame(r io.Reader) (Header, []byte, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Header{}, nil, err
	}
	h, err := DecodeHeader(hdr[:])
	if err != nil {
		return Header{}, nil, err
	}
	if h.DataSize > MaxFrameData {
		return Header{}, nil, ErrFrameTooLarge
	}
	data := make([]byte, h.DataSize)
	if h.DataSize > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			return Header{}, nil, err
		}
	}
	return h, data, nil
}

// writeFrame emits one physical frame carrying chunk, restamping DataSize.
func writeFrame(w io.Writer, h Header, chunk []byte) error {
	h.DataSize = uint32(len(chunk))
	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if len(chunk) > 0 {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}
