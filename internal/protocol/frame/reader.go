package frame

import (
	"io"

	"hubbub/internal/protocol/param"
)

// Reader assembles transactions from a byte stream. Small payloads are
// buffered whole; large payloads can be consumed fragment by fragment via
// ReadStream.
type Reader struct {
	r              io.Reader
	maxPayload     int
	validateParams bool
}

// NewReader creates a reader with the default payload limit and parameter
// block validation enabled.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, maxPayload: DefaultMaxPayload, validateParams: true}
}

// WithMaxPayload overrides the maximum accepted total_size.
func (rd *Reader) WithMaxPayload(max int) *Reader {
	rd.maxPayload = max
	return rd
}

// WithRawPayload disables parameter block validation for callers moving
// raw byte payloads, which are not parameter lists.
func (rd *Reader) WithRawPayload() *Reader {
	rd.validateParams = false
	return rd
}

// ReadTransaction reads the next complete transaction, reassembling
// fragments until the accumulated payload reaches total_size. Every
// continuation header must repeat the first header except for data_size.
func (rd *Reader) ReadTransaction() (*Transaction, error) {
	header, payload, err := readFrame(rd.r)
	if err != nil {
		return nil, err
	}
	if err := validateFirst(header, rd.maxPayload); err != nil {
		return nil, err
	}

	remaining := header.TotalSize - header.DataSize
	for remaining > 0 {
		next, chunk, err := readFrame(rd.r)
		if err != nil {
			return nil, err
		}
		if err := validateContinuation(header, next, remaining); err != nil {
			return nil, err
		}
		payload = append(payload, chunk...)
		remaining -= next.DataSize
	}

	header.DataSize = header.TotalSize
	if rd.validateParams {
		if err := param.Validate(payload); err != nil {
			return nil, err
		}
	}
	return &Transaction{Header: header, Payload: payload}, nil
}

// ReadStream reads the next transaction's first fragment and returns a
// Stream yielding the remaining fragments incrementally. The payload is
// never buffered whole and is not validated as a parameter list.
func (rd *Reader) ReadStream() (*Stream, error) {
	header, chunk, err := readFrame(rd.r)
	if err != nil {
		return nil, err
	}
	if err := validateFirst(header, rd.maxPayload); err != nil {
		return nil, err
	}
	return &Stream{
		r:         rd.r,
		header:    header,
		pending:   chunk,
		remaining: header.TotalSize - header.DataSize,
	}, nil
}
