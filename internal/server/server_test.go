package server

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hubbub/internal/compat"
	"hubbub/internal/dispatch"
	"hubbub/internal/handlers"
	"hubbub/internal/protocol"
	"hubbub/internal/protocol/frame"
	"hubbub/internal/protocol/param"
	"hubbub/internal/session"
	"hubbub/internal/store"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	deps := handlers.Deps{
		Accounts: store.NewAccountStore([]store.Account{
			{Login: "guest", PasswordHash: store.HashPassword("guest")},
		}),
		Board:     store.NewBoard([]string{"General"}),
		Files:     store.NewFileStore(""),
		Agreement: store.NewAgreement("house rules"),
		Log:       zerolog.Nop(),
	}
	table := handlers.Register(dispatch.NewBuilder(), deps).Build()
	layer := compat.NewLayer("hubbub", 0)
	d := dispatch.NewDispatcher(table, layer, zerolog.Nop())

	srv := New(Config{Addr: "127.0.0.1:0"}, d, session.NewRegistry(), deps.Agreement, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server never bound")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return srv
}

func dialAndShake(t *testing.T, srv *Server, version, subVersion uint16) (net.Conn, uint32) {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	preamble := make([]byte, protocol.PreambleLen)
	copy(preamble[0:4], protocol.ProtocolTag[:])
	copy(preamble[4:8], "HOTL")
	binary.BigEndian.PutUint16(preamble[8:10], version)
	binary.BigEndian.PutUint16(preamble[10:12], subVersion)
	if _, err := conn.Write(preamble); err != nil {
		t.Fatal(err)
	}

	reply := make([]byte, protocol.HandshakeReplyLen)
	if _, err := io.ReadFull(conn, reply); err != nil {
		t.Fatal(err)
	}
	if string(reply[0:4]) != string(protocol.ProtocolTag[:]) {
		t.Fatalf("reply tag = %q", reply[0:4])
	}
	return conn, binary.BigEndian.Uint32(reply[4:8])
}

func sendTxn(t *testing.T, conn net.Conn, typ uint16, id uint32, params ...param.Param) {
	t.Helper()
	payload, err := param.Encode(params)
	if err != nil {
		t.Fatal(err)
	}
	tx := &frame.Transaction{
		Header: frame.Header{
			Type:      typ,
			ID:        id,
			TotalSize: uint32(len(payload)),
			DataSize:  uint32(len(payload)),
		},
		Payload: payload,
	}
	if err := frame.NewWriter(conn).WriteTransaction(tx); err != nil {
		t.Fatal(err)
	}
}

func readTxn(t *testing.T, conn net.Conn) *frame.Transaction {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	tx, err := frame.NewReader(conn).ReadTransaction()
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestLoginFlowWithWelcomePushes(t *testing.T) {
	srv := startServer(t)
	conn, code := dialAndShake(t, srv, protocol.Version, 1)
	if code != protocol.HandshakeOK {
		t.Fatalf("handshake code = %d", code)
	}

	sendTxn(t, conn, protocol.TypeLogin, 10,
		param.String(protocol.FieldLogin, "guest"),
		param.String(protocol.FieldPassword, "guest"),
		param.Uint16(protocol.FieldVersion, 195),
	)

	reply := readTxn(t, conn)
	if reply.Header.Type != protocol.TypeLogin || reply.Header.ID != 10 || reply.Header.Error != 0 {
		t.Fatalf("login reply header = %+v", reply.Header)
	}
	params, err := param.Decode(reply.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := param.FirstUint16(params, protocol.FieldVersion); v != protocol.ClientVersion {
		t.Fatalf("version field = %#x", v)
	}

	access := readTxn(t, conn)
	if access.Header.Type != protocol.TypeUserAccess {
		t.Fatalf("first push type = %d", access.Header.Type)
	}
	accessParams, err := param.Decode(access.Payload)
	if err != nil {
		t.Fatal(err)
	}
	bits, ok := param.First(accessParams, protocol.FieldUserAccess)
	if !ok || len(bits) != 8 {
		t.Fatalf("access field = %v", bits)
	}
	granted := session.Privileges(binary.BigEndian.Uint64(bits))
	if !granted.Has(session.PrivNewsReadArticle) {
		t.Fatal("access push misses news read bit")
	}

	agreement := readTxn(t, conn)
	if agreement.Header.Type != protocol.TypeAgreement {
		t.Fatalf("second push type = %d", agreement.Header.Type)
	}
	agreementParams, err := param.Decode(agreement.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if text, _ := param.FirstString(agreementParams, protocol.FieldData); text != "house rules" {
		t.Fatalf("agreement text = %q", text)
	}
}

func TestHandshakeRejectsBadVersion(t *testing.T) {
	srv := startServer(t)
	conn, code := dialAndShake(t, srv, 99, 1)
	if code != protocol.HandshakeErrBadVersion {
		t.Fatalf("code = %d, want %d", code, protocol.HandshakeErrBadVersion)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("connection not closed after rejection: %v", err)
	}
}

func TestHandshakeRejectsBadTag(t *testing.T) {
	srv := startServer(t)
	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	preamble := make([]byte, protocol.PreambleLen)
	copy(preamble[0:4], "NOPE")
	binary.BigEndian.PutUint16(preamble[8:10], protocol.Version)
	if _, err := conn.Write(preamble); err != nil {
		t.Fatal(err)
	}
	reply := make([]byte, protocol.HandshakeReplyLen)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.ReadFull(conn, reply); err != nil {
		t.Fatal(err)
	}
	if code := binary.BigEndian.Uint32(reply[4:8]); code != protocol.HandshakeErrInvalidProtocol {
		t.Fatalf("code = %d, want %d", code, protocol.HandshakeErrInvalidProtocol)
	}
}

func TestUnknownTypeGetsErrorReply(t *testing.T) {
	srv := startServer(t)
	conn, code := dialAndShake(t, srv, protocol.Version, 1)
	if code != protocol.HandshakeOK {
		t.Fatalf("handshake code = %d", code)
	}

	sendTxn(t, conn, 9999, 77)
	reply := readTxn(t, conn)
	if reply.Header.Type != 9999 || reply.Header.ID != 77 {
		t.Fatalf("reply header = %+v", reply.Header)
	}
	if reply.Header.Error != protocol.ErrCodeUnknownType {
		t.Fatalf("error = %d, want %d", reply.Header.Error, protocol.ErrCodeUnknownType)
	}
}

func TestMalformedFrameDisconnects(t *testing.T) {
	srv := startServer(t)
	conn, code := dialAndShake(t, srv, protocol.Version, 1)
	if code != protocol.HandshakeOK {
		t.Fatalf("handshake code = %d", code)
	}

	// Non-zero flags byte is never valid.
	bad := frame.EncodeHeader(frame.Header{Flags: 1, Type: protocol.TypeLogin, ID: 1})
	if _, err := conn.Write(bad); err != nil {
		t.Fatal(err)
	}

	notice := readTxn(t, conn)
	if notice.Header.Type != protocol.TypeDisconnectNotice {
		t.Fatalf("notice type = %d, want %d", notice.Header.Type, protocol.TypeDisconnectNotice)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("connection not closed after frame error: %v", err)
	}
}
