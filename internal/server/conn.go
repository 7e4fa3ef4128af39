package server

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"hubbub/internal/observability"
	"hubbub/internal/protocol"
	"hubbub/internal/protocol/frame"
	"hubbub/internal/protocol/param"
	"hubbub/internal/session"
)

// pushID hands out ids for server-initiated transactions, keeping them out
// of the client's correlation-id space within a connection's lifetime.
var pushID atomic.Uint32

func nextPushID() uint32 {
	return pushID.Add(1)
}

// handshake reads and answers the 12-byte preamble under the protocol
// deadline. The coded rejection reply is best-effort; the caller closes the
// connection on any non-nil error.
func (s *Server) handshake(conn net.Conn) (protocol.ClientIdentity, error) {
	if err := conn.SetReadDeadline(time.Now().Add(protocol.HandshakeTimeout)); err != nil {
		return protocol.ClientIdentity{}, err
	}
	buf := make([]byte, protocol.PreambleLen)
	if _, err := io.ReadFull(conn, buf); err != nil {
		if isTimeout(err) {
			observability.RecordHandshakeFailure(protocol.HandshakeErrTimeout)
			_ = protocol.WriteHandshakeReply(conn, protocol.HandshakeErrTimeout)
		}
		return protocol.ClientIdentity{}, err
	}
	identity, err := protocol.ParsePreamble(buf)
	if err != nil {
		code := protocol.HandshakeCodeFor(err)
		observability.RecordHandshakeFailure(code)
		_ = protocol.WriteHandshakeReply(conn, code)
		return protocol.ClientIdentity{}, err
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return protocol.ClientIdentity{}, err
	}
	return identity, protocol.WriteHandshakeReply(conn, protocol.HandshakeOK)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, os.ErrDeadlineExceeded)
}

// handleConn owns one accepted connection from handshake to teardown.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	identity, err := s.handshake(conn)
	if err != nil {
		s.log.Debug().Err(err).Str("peer", conn.RemoteAddr().String()).Msg("handshake failed")
		return
	}

	sess := s.sessions.Add(conn.RemoteAddr().String(), identity)
	defer s.sessions.Remove(sess)

	observability.RecordConnectionOpened()
	defer observability.RecordConnectionClosed()

	log := s.log.With().
		Uint64("session", sess.ID()).
		Str("peer", sess.RemoteAddr()).
		Logger()
	log.Info().
		Uint16("sub_version", identity.SubVersion).
		Msg("connection established")

	outbound := NewOutbound(s.cfg.PushQueueDepth, observability.RecordPushDropped)
	s.pushes.Register(sess.ID(), outbound, sess.Compat())
	defer func() {
		s.pushes.Unregister(sess.ID())
		outbound.Close()
	}()

	writerDone := make(chan struct{})
	go s.writeLoop(conn, outbound, log, writerDone)

	s.readLoop(ctx, conn, sess, outbound, log)

	outbound.Close()
	<-writerDone
	log.Info().Msg("connection closed")
}

// writeLoop drains the outbound queue onto the socket. A write failure
// closes the connection, which unblocks the read loop.
func (s *Server) writeLoop(conn net.Conn, outbound *Outbound, log zerolog.Logger, done chan<- struct{}) {
	defer close(done)
	w := frame.NewWriter(conn).WithMaxPayload(s.cfg.MaxPayload)
	for {
		tx, ok := outbound.Next()
		if !ok {
			return
		}
		if s.cfg.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		if err := w.WriteTransaction(tx); err != nil {
			log.Warn().Err(err).Msg("write failed")
			conn.Close()
			return
		}
	}
}

// readLoop reads transactions until the peer disconnects or sends a
// malformed frame. Frame errors are connection-fatal: a best-effort
// disconnect notice goes out, then the connection closes.
func (s *Server) readLoop(ctx context.Context, conn net.Conn, sess *session.Session, outbound *Outbound, log zerolog.Logger) {
	r := frame.NewReader(conn).WithMaxPayload(s.cfg.MaxPayload)
	welcomed := false
	for {
		tx, err := r.ReadTransaction()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			observability.RecordFrameError()
			log.Warn().Err(err).Msg("malformed frame, disconnecting")
			outbound.EnqueueReply(&frame.Transaction{
				Header: frame.Header{Type: protocol.TypeDisconnectNotice, ID: nextPushID()},
			})
			return
		}

		reply := s.dispatcher.Dispatch(ctx, sess, tx)
		if !outbound.EnqueueReply(reply) {
			return
		}

		if !welcomed && reply.Header.Type == protocol.TypeLogin && reply.Header.Error == 0 {
			welcomed = true
			s.welcome(sess)
		}
	}
}

// welcome sends the post-login pushes: the account's access bitmap and the
// server agreement.
func (s *Server) welcome(sess *session.Session) {
	access := make([]byte, 8)
	binary.BigEndian.PutUint64(access, uint64(sess.Privileges()))
	s.pushTo(sess.ID(), protocol.TypeUserAccess, []param.Param{
		{ID: protocol.FieldUserAccess, Value: access},
	})
	s.pushTo(sess.ID(), protocol.TypeAgreement, []param.Param{
		param.String(protocol.FieldData, s.agreement.Text()),
	})
}

// pushTo queues a server-initiated transaction on one connection.
func (s *Server) pushTo(id uint64, typ uint16, params []param.Param) bool {
	payload, err := param.Encode(params)
	if err != nil {
		s.log.Error().Err(err).Uint16("type", typ).Msg("push encoding failed")
		return false
	}
	return s.pushes.Push(id, &frame.Transaction{
		Header: frame.Header{
			Type:      typ,
			ID:        nextPushID(),
			TotalSize: uint32(len(payload)),
			DataSize:  uint32(len(payload)),
		},
		Payload: payload,
	})
}

// Broadcast queues a server-initiated transaction on every connection
// except the one named by except (zero broadcasts to all).
func (s *Server) Broadcast(typ uint16, params []param.Param, except uint64) (int, error) {
	payload, err := param.Encode(params)
	if err != nil {
		return 0, err
	}
	tx := &frame.Transaction{
		Header: frame.Header{
			Type:      typ,
			ID:        nextPushID(),
			TotalSize: uint32(len(payload)),
			DataSize:  uint32(len(payload)),
		},
		Payload: payload,
	}
	return s.pushes.Broadcast(tx, except), nil
}
