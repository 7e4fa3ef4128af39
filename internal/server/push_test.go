package server

import (
	"testing"

	"hubbub/internal/compat"
	"hubbub/internal/protocol"
	"hubbub/internal/protocol/frame"
	"hubbub/internal/protocol/param"
)

func plainProfile() *compat.Profile {
	return compat.NewProfile(protocol.ClientIdentity{Version: protocol.Version, SubVersion: 1})
}

func textTx(t *testing.T, id uint32, text string) *frame.Transaction {
	t.Helper()
	payload, err := param.Encode([]param.Param{param.String(protocol.FieldData, text)})
	if err != nil {
		t.Fatal(err)
	}
	return &frame.Transaction{
		Header: frame.Header{
			Type:      protocol.TypeAgreement,
			ID:        id,
			TotalSize: uint32(len(payload)),
			DataSize:  uint32(len(payload)),
		},
		Payload: payload,
	}
}

func TestBroadcastSkipsSender(t *testing.T) {
	r := NewPushRegistry()
	a := NewOutbound(8, nil)
	b := NewOutbound(8, nil)
	r.Register(1, a, plainProfile())
	r.Register(2, b, plainProfile())

	n := r.Broadcast(textTx(t, 7, "hi"), 1)
	if n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	if a.Depth() != 0 || b.Depth() != 1 {
		t.Fatalf("depths = %d, %d", a.Depth(), b.Depth())
	}
}

func TestPushToUnknownSession(t *testing.T) {
	r := NewPushRegistry()
	if r.Push(99, textTx(t, 1, "hi")) {
		t.Fatal("push to unknown session accepted")
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	r := NewPushRegistry()
	q := NewOutbound(8, nil)
	r.Register(1, q, plainProfile())
	r.Unregister(1)
	if r.Size() != 0 {
		t.Fatalf("size = %d, want 0", r.Size())
	}
	if r.Push(1, textTx(t, 1, "hi")) {
		t.Fatal("push after unregister accepted")
	}
}

func TestDeliverEncodesPerRecipient(t *testing.T) {
	r := NewPushRegistry()
	plain := NewOutbound(8, nil)
	obfuscated := NewOutbound(8, nil)

	// Flip a profile into XOR mode the way a legacy client would: by
	// sending an obfuscated text field through the request hook.
	xorProfile := plainProfile()
	seed, err := param.Encode([]param.Param{{ID: protocol.FieldLogin, Value: []byte{'g' ^ 0xff, 'o' ^ 0xff}}})
	if err != nil {
		t.Fatal(err)
	}
	req := &frame.Transaction{
		Header:  frame.Header{Type: protocol.TypeLogin, ID: 1, TotalSize: uint32(len(seed)), DataSize: uint32(len(seed))},
		Payload: seed,
	}
	if err := compat.NewLayer("hubbub", 0).OnRequest(xorProfile, req); err != nil {
		t.Fatal(err)
	}
	if !xorProfile.XOREnabled() {
		t.Fatal("profile not in XOR mode")
	}

	r.Register(1, plain, plainProfile())
	r.Register(2, obfuscated, xorProfile)

	if n := r.Broadcast(textTx(t, 3, "news"), 0); n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}

	got, _ := plain.Next()
	params, err := param.Decode(got.Payload)
	if err != nil {
		t.Fatal(err)
	}
	text, _ := param.FirstString(params, protocol.FieldData)
	if text != "news" {
		t.Fatalf("plain recipient text = %q", text)
	}

	got, _ = obfuscated.Next()
	params, err = param.Decode(got.Payload)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := param.First(params, protocol.FieldData)
	want := []byte{'n' ^ 0xff, 'e' ^ 0xff, 'w' ^ 0xff, 's' ^ 0xff}
	if string(raw) != string(want) {
		t.Fatalf("obfuscated recipient bytes = %v, want %v", raw, want)
	}
}
