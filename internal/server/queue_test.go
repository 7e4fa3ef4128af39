package server

import (
	"testing"
	"time"

	"hubbub/internal/protocol/frame"
)

func tx(id uint32) *frame.Transaction {
	return &frame.Transaction{Header: frame.Header{ID: id}}
}

func TestRepliesDrainBeforePushes(t *testing.T) {
	o := NewOutbound(8, nil)
	o.EnqueuePush(tx(100))
	o.EnqueueReply(tx(1))
	o.EnqueuePush(tx(101))
	o.EnqueueReply(tx(2))

	want := []uint32{1, 2, 100, 101}
	for _, id := range want {
		got, ok := o.Next()
		if !ok {
			t.Fatal("queue closed early")
		}
		if got.Header.ID != id {
			t.Fatalf("got id %d, want %d", got.Header.ID, id)
		}
	}
}

func TestPushDropWhenFull(t *testing.T) {
	drops := 0
	o := NewOutbound(2, func() { drops++ })
	if !o.EnqueuePush(tx(1)) || !o.EnqueuePush(tx(2)) {
		t.Fatal("pushes under the cap rejected")
	}
	if o.EnqueuePush(tx(3)) {
		t.Fatal("push over the cap accepted")
	}
	if drops != 1 {
		t.Fatalf("drops = %d, want 1", drops)
	}
	if o.Depth() != 2 {
		t.Fatalf("depth = %d, want 2", o.Depth())
	}
}

func TestCloseDrainsThenStops(t *testing.T) {
	o := NewOutbound(8, nil)
	o.EnqueueReply(tx(1))
	o.Close()

	// Already-queued work still drains after Close.
	got, ok := o.Next()
	if !ok || got.Header.ID != 1 {
		t.Fatalf("drain after close: ok=%v tx=%+v", ok, got)
	}
	if _, ok := o.Next(); ok {
		t.Fatal("Next reported open on an empty closed queue")
	}

	if o.EnqueueReply(tx(2)) {
		t.Fatal("enqueue accepted after Close")
	}
	if o.EnqueuePush(tx(3)) {
		t.Fatal("push accepted after Close")
	}
}

func TestCloseWakesBlockedConsumer(t *testing.T) {
	o := NewOutbound(8, nil)
	woke := make(chan bool, 1)
	go func() {
		_, ok := o.Next()
		woke <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	o.Close()

	select {
	case ok := <-woke:
		if ok {
			t.Fatal("Next returned a transaction on an empty closed queue")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer not woken by Close")
	}
}
