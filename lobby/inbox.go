package lobby

import (
	"sync"

	"github.com/jacobpatterson1549/rts-masterserver/protocol"
)

// Inbox is an unbounded FIFO queue of messages for one Client's state
// machine to consume. Unlike a buffered Go channel, Push never blocks the
// caller (a broadcaster enqueuing to many inboxes must never stall on a
// slow consumer).
type Inbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []protocol.Message
	closed bool
}

// NewInbox creates an empty Inbox.
func NewInbox() *Inbox {
	in := &Inbox{}
	in.cond = sync.NewCond(&in.mu)
	return in
}

// Push appends m to the tail of the queue and wakes any blocked Pop.
// Push on a closed Inbox is a no-op; it must never block.
func (in *Inbox) Push(m protocol.Message) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	in.queue = append(in.queue, m)
	in.cond.Signal()
}

// Pop blocks until a message is available or the Inbox is closed. ok is
// false once the queue is drained and closed.
func (in *Inbox) Pop() (m protocol.Message, ok bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for len(in.queue) == 0 && !in.closed {
		in.cond.Wait()
	}
	if len(in.queue) == 0 {
		return protocol.Message{}, false
	}
	m, in.queue = in.queue[0], in.queue[1:]
	return m, true
}

// Close marks the Inbox closed and wakes any blocked Pop; queued messages
// already pushed remain available until drained.
func (in *Inbox) Close() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.closed = true
	in.cond.Broadcast()
}
