package server

import (
	"sync"

	"github.com/eapache/queue"

	"hubbub/internal/protocol/frame"
)

// Outbound is a per-connection two-lane transaction queue. Replies ride the
// high lane and are never dropped; server pushes ride the bounded low lane
// and are dropped when the client cannot keep up. The connection's writer
// goroutine is the only consumer.
type Outbound struct {
	mu      sync.Mutex
	cond    *sync.Cond
	high    *queue.Queue
	low     *queue.Queue
	maxLow  int
	closed  bool
	dropped func()
}

// NewOutbound creates a queue whose low lane holds at most maxLow pending
// pushes. The dropped callback fires once per discarded push; nil disables
// it.
func NewOutbound(maxLow int, dropped func()) *Outbound {
	if maxLow < 1 {
		maxLow = 1
	}
	if dropped == nil {
		dropped = func() {}
	}
	o := &Outbound{
		high:    queue.New(),
		low:     queue.New(),
		maxLow:  maxLow,
		dropped: dropped,
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// EnqueueReply queues a reply on the high lane.
func (o *Outbound) EnqueueReply(tx *frame.Transaction) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.high.Add(tx)
	o.cond.Signal()
	return true
}

// EnqueuePush queues a server-initiated transaction on the low lane,
// reporting false when the queue is closed or full.
func (o *Outbound) EnqueuePush(tx *frame.Transaction) bool {
	o.mu.Lock()
	if o.closed || o.low.Length() >= o.maxLow {
		o.mu.Unlock()
		o.dropped()
		return false
	}
	o.low.Add(tx)
	o.cond.Signal()
	o.mu.Unlock()
	return true
}

// Next blocks until a transaction is available or the queue closes. Replies
// drain before pushes.
func (o *Outbound) Next() (*frame.Transaction, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for {
		if o.high.Length() > 0 {
			return o.high.Remove().(*frame.Transaction), true
		}
		if o.low.Length() > 0 {
			return o.low.Remove().(*frame.Transaction), true
		}
		if o.closed {
			return nil, false
		}
		o.cond.Wait()
	}
}

// Close stops intake. The consumer drains whatever is already queued, then
// Next reports closed; anything left undrained when the consumer exits is
// discarded with the queue.
func (o *Outbound) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.cond.Broadcast()
}

// Depth returns the number of queued transactions across both lanes.
func (o *Outbound) Depth() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.high.Length() + o.low.Length()
}
