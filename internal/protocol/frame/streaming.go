package frame

import "io"

// Stream yields a transaction's payload fragment by fragment without
// buffering the whole payload. Obtained from Reader.ReadStream.
type Stream struct {
	r         io.Reader
	header    Header
	pending   []byte
	remaining uint32
}

// Header returns the transaction's first-fragment header.
func (s *Stream) Header() Header { return s.header }

// Next returns the next payload fragment, or nil once the declared
// total_size has been delivered. Returned slices are owned by the caller.
func (s *Stream) Next() ([]byte, error) {
	if len(s.pending) > 0 {
		chunk := s.pending
		s.pending = nil
		return chunk, nil
	}
	if s.remaining == 0 {
		return nil, nil
	}
	next, chunk, err := readFrame(s.r)
	if err != nil {
		return nil, err
	}
	if err := validateContinuation(s.header, next, s.remaining); err != nil {
		return nil, err
	}
	s.remaining -= next.DataSize
	return chunk, nil
}
