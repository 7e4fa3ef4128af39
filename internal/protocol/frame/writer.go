package frame

import (
	"errors"
	"io"

	"hubbub/internal/protocol/param"
)

// Writer serialises transactions onto a byte stream, splitting payloads
// larger than the frame limit into multiple physical frames.
type Writer struct {
	w          io.Writer
	maxFrame   int
	maxPayload int
}

// NewWriter creates a writer with the default frame and payload limits.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, maxFrame: MaxFrameData, maxPayload: DefaultMaxPayload}
}

// WithMaxFrame overrides the fragmentation size. The value is clamped to
// 1..MaxFrameData so frames stay acceptable to readers.
func (wr *Writer) WithMaxFrame(max int) *Writer {
	switch {
	case max < 1:
		wr.maxFrame = 1
	case max > MaxFrameData:
		wr.maxFrame = MaxFrameData
	default:
		wr.maxFrame = max
	}
	return wr
}

// WithMaxPayload overrides the maximum accepted total payload size.
func (wr *Writer) WithMaxPayload(max int) *Writer {
	wr.maxPayload = max
	return wr
}

// WriteTransaction emits tx as one frame, or as a run of frames no larger
// than the frame limit. The header's TotalSize must equal the payload
// length and the payload must be a well-formed parameter block.
func (wr *Writer) WriteTransaction(tx *Transaction) error {
	if tx.Header.Flags != 0 {
		return ErrInvalidFlags
	}
	if int(tx.Header.TotalSize) != len(tx.Payload) {
		return ErrSizeMismatch
	}
	if len(tx.Payload) > wr.maxPayload {
		return ErrPayloadTooLarge
	}
	if err := param.Validate(tx.Payload); err != nil {
		return err
	}
	if len(tx.Payload) == 0 {
		return writeFrame(wr.w, tx.Header, nil)
	}
	for offset := 0; offset < len(tx.Payload); {
		end := min(offset+wr.maxFrame, len(tx.Payload))
		if err := writeFrame(wr.w, tx.Header, tx.Payload[offset:end]); err != nil {
			return err
		}
		offset = end
	}
	return nil
}

// WriteStream emits a payload read incrementally from source, fragmenting
// as it goes. The caller must set header.TotalSize to the exact number of
// bytes source will yield; early EOF is reported as a size mismatch. The
// payload is not validated as a parameter list.
func (wr *Writer) WriteStream(header Header, source io.Reader) error {
	if header.Flags != 0 {
		return ErrInvalidFlags
	}
	if int64(header.TotalSize) > int64(wr.maxPayload) {
		return ErrPayloadTooLarge
	}
	if header.TotalSize == 0 {
		return writeFrame(wr.w, header, nil)
	}

	buf := make([]byte, wr.maxFrame)
	sent := uint32(0)
	for sent < header.TotalSize {
		n := min(int(header.TotalSize-sent), wr.maxFrame)
		chunk := buf[:n]
		if _, err := io.ReadFull(source, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return ErrSizeMismatch
			}
			return err
		}
		if err := writeFrame(wr.w, header, chunk); err != nil {
			return err
		}
		sent += uint32(n)
	}
	return nil
}
