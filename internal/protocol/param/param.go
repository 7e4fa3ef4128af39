// Package param implements the parameter block carried in a transaction's
// first fragment: a 2-byte count followed by count records of
// [field_id(2), field_size(2), field_data]. Continuation fragments carry
// raw payload bytes with no such prefix.
package param

import (
	"encoding/binary"
	"errors"
	"fmt"

	"hubbub/internal/protocol"
)

const recordHeaderLen = 4

var (
	ErrShortRecord    = errors.New("param: truncated parameter record")
	ErrTrailingBytes  = errors.New("param: trailing bytes after last parameter")
	ErrValueTooLarge  = errors.New("param: field value exceeds 64 KiB")
	ErrTooManyParams  = errors.New("param: parameter count exceeds 64 Ki")
	ErrDuplicateField = errors.New("param: duplicate field id")
	ErrMissingField   = errors.New("param: missing required field")
)

// Param is one decoded parameter record.
type Param struct {
	ID    uint16
	Value []byte
}

// String creates a text parameter.
func String(id uint16, v string) Param {
	return Param{ID: id, Value: []byte(v)}
}

// Uint16 creates a big-endian 16-bit parameter.
func Uint16(id uint16, v uint16) Param {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return Param{ID: id, Value: buf}
}

// Uint32 creates a big-endian 32-bit parameter.
func Uint32(id uint16, v uint32) Param {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return Param{ID: id, Value: buf}
}

// Encode serialises params into a parameter block. An empty slice yields an
// empty payload, not a zero count.
func Encode(params []Param) ([]byte, error) {
	if len(params) == 0 {
		return nil, nil
	}
	if len(params) > int(^uint16(0)) {
		return nil, ErrTooManyParams
	}
	size := 2
	for _, p := range params {
		if len(p.Value) > int(^uint16(0)) {
			return nil, fmt.Errorf("%w: field %d", ErrValueTooLarge, p.ID)
		}
		size += recordHeaderLen + len(p.Value)
	}
	out := make([]byte, 0, size)
	out = binary.BigEndian.AppendUint16(out, uint16(len(params)))
	for _, p := range params {
		out = binary.BigEndian.AppendUint16(out, p.ID)
		out = binary.BigEndian.AppendUint16(out, uint16(len(p.Value)))
		out = append(out, p.Value...)
	}
	return out, nil
}

// Decode parses a parameter block. The count must account for the entire
// payload; duplicate field ids are rejected unless the id is repeatable.
func Decode(payload []byte) ([]Param, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	if len(payload) < 2 {
		return nil, ErrShortRecord
	}
	count := int(binary.BigEndian.Uint16(payload[0:2]))
	params := make([]Param, 0, count)
	seen := make(map[uint16]struct{}, count)
	offset := 2
	for i := 0; i < count; i++ {
		if len(payload)-offset < recordHeaderLen {
			return nil, ErrShortRecord
		}
		id := binary.BigEndian.Uint16(payload[offset : offset+2])
		size := int(binary.BigEndian.Uint16(payload[offset+2 : offset+4]))
		offset += recordHeaderLen
		if len(payload)-offset < size {
			return nil, ErrShortRecord
		}
		if !protocol.RepeatableField(id) {
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("%w: %d", ErrDuplicateField, id)
			}
			seen[id] = struct{}{}
		}
		value := make([]byte, size)
		copy(value, payload[offset:offset+size])
		offset += size
		params = append(params, Param{ID: id, Value: value})
	}
	if offset != len(payload) {
		return nil, ErrTrailingBytes
	}
	return params, nil
}

// Validate checks parameter block structure without retaining the decoded
// records. The frame layer calls this on assembled payloads.
func Validate(payload []byte) error {
	_, err := Decode(payload)
	return err
}

// First returns the value of the first parameter with the given id.
func First(params []Param, id uint16) ([]byte, bool) {
	for _, p := range params {
		if p.ID == id {
			return p.Value, true
		}
	}
	return nil, false
}

// FirstString returns the first parameter with the given id as a string.
func FirstString(params []Param, id uint16) (string, bool) {
	v, ok := First(params, id)
	if !ok {
		return "", false
	}
	return string(v), true
}

// RequiredString returns the first parameter with the given id as a string,
// or an error naming the missing field.
func RequiredString(params []Param, id uint16) (string, error) {
	v, ok := FirstString(params, id)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrMissingField, id)
	}
	return v, nil
}

// FirstUint16 decodes the first parameter with the given id as a big-endian
// 16-bit value. Four-byte values are accepted when they fit, matching the
// width tolerance of older clients.
func FirstUint16(params []Param, id uint16) (uint16, bool) {
	v, ok := First(params, id)
	if !ok {
		return 0, false
	}
	switch len(v) {
	case 2:
		return binary.BigEndian.Uint16(v), true
	case 4:
		raw := binary.BigEndian.Uint32(v)
		if raw > uint32(^uint16(0)) {
			return 0, false
		}
		return uint16(raw), true
	}
	return 0, false
}

// FirstUint32 decodes the first parameter with the given id as a big-endian
// 32-bit value.
func FirstUint32(params []Param, id uint16) (uint32, bool) {
	v, ok := First(params, id)
	if !ok || len(v) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

// All returns every value carried by parameters with the given id, in order.
func All(params []Param, id uint16) [][]byte {
	var out [][]byte
	for _, p := range params {
		if p.ID == id {
			out = append(out, p.Value)
		}
	}
	return out
}
