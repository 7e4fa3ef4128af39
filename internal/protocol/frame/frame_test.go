package frame

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Flags:     0,
		IsReply:   1,
		Type:      107,
		ID:        0x127,
		Error:     3,
		TotalSize: 40,
		DataSize:  20,
	}
	got, err := DecodeHeader(EncodeHeader(h))
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestDecodeHeaderRejectsShortBuffer(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderLen-1))
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestReplyHeaderMirrorsRequest(t *testing.T) {
	req := Header{Type: 9999, ID: 42}
	reply := ReplyHeader(req, 1, 0)
	assert.Equal(t, uint8(1), reply.IsReply)
	assert.Equal(t, uint16(9999), reply.Type)
	assert.Equal(t, uint32(42), reply.ID)
	assert.Equal(t, uint32(1), reply.Error)
	assert.Zero(t, reply.TotalSize)
}

// paramBlock builds a one-field parameter block of the given total length.
// The field value is padded so the block lands exactly on size bytes.
func paramBlock(t *testing.T, size int) []byte {
	t.Helper()
	require.GreaterOrEqual(t, size, 6, "size must fit count plus one record header")
	value := make([]byte, size-6)
	block := make([]byte, 0, size)
	block = binary.BigEndian.AppendUint16(block, 1)
	block = binary.BigEndian.AppendUint16(block, 101)
	block = binary.BigEndian.AppendUint16(block, uint16(len(value)))
	block = append(block, value...)
	return block
}

func TestSingleFragmentRoundTrip(t *testing.T) {
	payload := paramBlock(t, 26)
	tx := &Transaction{
		Header: Header{
			Type:      107,
			ID:        1,
			TotalSize: uint32(len(payload)),
			DataSize:  uint32(len(payload)),
		},
		Payload: payload,
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteTransaction(tx))

	got, err := NewReader(&buf).ReadTransaction()
	require.NoError(t, err)
	assert.Equal(t, tx.Header, got.Header)
	assert.Equal(t, tx.Payload, got.Payload)
}

func TestTwoFragmentReassembly(t *testing.T) {
	payload := paramBlock(t, 20)
	first := Header{Type: 107, ID: 0x127, TotalSize: 20, DataSize: 10}

	var buf bytes.Buffer
	buf.Write(EncodeHeader(first))
	buf.Write(payload[:10])
	second := first
	second.DataSize = 10
	buf.Write(EncodeHeader(second))
	buf.Write(payload[10:])

	got, err := NewReader(&buf).ReadTransaction()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x127), got.Header.ID)
	assert.Equal(t, uint32(20), got.Header.DataSize, "assembled data size covers the full payload")
	assert.Equal(t, payload, got.Payload)
}

func TestReaderRejectsNonZeroFlags(t *testing.T) {
	h := Header{Flags: 1, Type: 107, ID: 1}
	var buf bytes.Buffer
	buf.Write(EncodeHeader(h))
	_, err := NewReader(&buf).ReadTransaction()
	assert.ErrorIs(t, err, ErrInvalidFlags)
}

func TestReaderRejectsOversizedFragment(t *testing.T) {
	h := Header{Type: 107, ID: 1, TotalSize: MaxFrameData + 1, DataSize: MaxFrameData + 1}
	var buf bytes.Buffer
	buf.Write(EncodeHeader(h))
	_, err := NewReader(&buf).ReadTransaction()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReaderRejectsOversizedPayload(t *testing.T) {
	h := Header{Type: 107, ID: 1, TotalSize: DefaultMaxPayload + 1, DataSize: 1}
	var buf bytes.Buffer
	buf.Write(EncodeHeader(h))
	buf.WriteByte(0)
	_, err := NewReader(&buf).ReadTransaction()
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestReaderRejectsDataSizeBeyondTotal(t *testing.T) {
	h := Header{Type: 107, ID: 1, TotalSize: 4, DataSize: 8}
	var buf bytes.Buffer
	buf.Write(EncodeHeader(h))
	buf.Write(make([]byte, 8))
	_, err := NewReader(&buf).ReadTransaction()
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestReaderRejectsEmptyFirstFragmentWithPendingTotal(t *testing.T) {
	h := Header{Type: 107, ID: 1, TotalSize: 8, DataSize: 0}
	var buf bytes.Buffer
	buf.Write(EncodeHeader(h))
	_, err := NewReader(&buf).ReadTransaction()
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestReaderRejectsMismatchedContinuation(t *testing.T) {
	payload := paramBlock(t, 20)
	first := Header{Type: 107, ID: 7, TotalSize: 20, DataSize: 10}

	var buf bytes.Buffer
	buf.Write(EncodeHeader(first))
	buf.Write(payload[:10])
	wrong := first
	wrong.ID = 8
	wrong.DataSize = 10
	buf.Write(EncodeHeader(wrong))
	buf.Write(payload[10:])

	_, err := NewReader(&buf).ReadTransaction()
	assert.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestReaderRejectsContinuationOvershoot(t *testing.T) {
	first := Header{Type: 107, ID: 7, TotalSize: 20, DataSize: 10}
	var buf bytes.Buffer
	buf.Write(EncodeHeader(first))
	buf.Write(make([]byte, 10))
	over := first
	over.DataSize = 11
	buf.Write(EncodeHeader(over))
	buf.Write(make([]byte, 11))

	_, err := NewReader(&buf).WithRawPayload().ReadTransaction()
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestWriterFragmentsLargePayload(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 100)
	tx := &Transaction{
		Header:  Header{Type: 400, ID: 3, TotalSize: 100, DataSize: 100},
		Payload: payload,
	}

	var buf bytes.Buffer
	w := NewWriter(&buf).WithMaxFrame(32)
	// Raw payload, so fragment through the streaming path instead of the
	// parameter-validated one.
	require.NoError(t, w.WriteStream(tx.Header, bytes.NewReader(payload)))

	frames := 0
	rd := bytes.NewReader(buf.Bytes())
	for rd.Len() > 0 {
		hdr := make([]byte, HeaderLen)
		_, err := rd.Read(hdr)
		require.NoError(t, err)
		h, err := DecodeHeader(hdr)
		require.NoError(t, err)
		assert.LessOrEqual(t, int(h.DataSize), 32)
		assert.Equal(t, uint32(100), h.TotalSize)
		data := make([]byte, h.DataSize)
		_, err = rd.Read(data)
		require.NoError(t, err)
		frames++
	}
	assert.Equal(t, 4, frames)
}

func TestWriterRejectsTotalSizeMismatch(t *testing.T) {
	tx := &Transaction{
		Header:  Header{Type: 107, ID: 1, TotalSize: 5, DataSize: 5},
		Payload: make([]byte, 4),
	}
	err := NewWriter(&bytes.Buffer{}).WriteTransaction(tx)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestWriterRejectsNonZeroFlags(t *testing.T) {
	tx := &Transaction{Header: Header{Flags: 1}}
	err := NewWriter(&bytes.Buffer{}).WriteTransaction(tx)
	assert.ErrorIs(t, err, ErrInvalidFlags)
}
