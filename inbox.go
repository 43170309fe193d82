package revexpire

import (
	"container/list"

	"github.com/sasha-s/go-deadlock"
)

/*
inbox is the FIFO of handles pending heap-level work (spec.md §4.4). It is
guarded by the engine mutex, with a priority head-insertion discipline for
dying handles: expedited reclamation skips ahead of ordinary INSERT/MOVE
traffic. The expiry thread is the sole consumer; request-goroutines only
ever call post.

The condition variable from the C source (pthread_cond_t, signalled on
every enqueue) is modeled with a doorbell channel of capacity 1: a send
that would block is dropped, since a pending signal already means "there is
something to do" and coalescing wakeups is exactly what the condvar would
do too once the waiter drains the queue on its next iteration.
*/
type inbox struct {
	mu       deadlock.Mutex
	queue    list.List
	doorbell chan struct{}
}

func newInbox() *inbox {
	return &inbox{doorbell: make(chan struct{}, 1)}
}

// post enqueues h for the expiry thread. Dying handles jump to the head of
// the queue (expedited reclamation); everything else goes to the tail.
// h must already carry OFFLRU (spec.md §4.4 precondition).
func (b *inbox) post(h *Handle) {
	invariant(h.flags.has(flagOffLRU), "inbox.post: handle %v posted without OFFLRU", h.ID)

	b.mu.Lock()
	if h.flags.has(flagDying) {
		b.queue.PushFront(h)
	} else {
		b.queue.PushBack(h)
	}
	b.mu.Unlock()

	b.ring()
}

// ring signals the doorbell without blocking if it is already armed.
func (b *inbox) ring() {
	select {
	case b.doorbell <- struct{}{}:
	default:
	}
}

// tryDequeue removes and returns the head of the inbox, or (nil, false) if
// it is empty.
func (b *inbox) tryDequeue() (*Handle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	front := b.queue.Front()
	if front == nil {
		return nil, false
	}
	b.queue.Remove(front)
	return front.Value.(*Handle), true
}
