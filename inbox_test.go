package revexpire

import "testing"

func newBoxHandle(dying bool) *Handle {
	h := NewHandle(&Object{}, &Bucket{id: 1})
	h.flags |= flagOffLRU
	if dying {
		h.flags |= flagDying
	}
	return h
}

func TestInboxFIFOForOrdinaryEntries(t *testing.T) {
	b := newInbox()
	h1 := newBoxHandle(false)
	h2 := newBoxHandle(false)

	b.post(h1)
	b.post(h2)

	got, ok := b.tryDequeue()
	if !ok || got != h1 {
		t.Fatal("expected FIFO order for non-dying entries")
	}
	got, ok = b.tryDequeue()
	if !ok || got != h2 {
		t.Fatal("expected h2 second")
	}
}

func TestInboxDyingJumpsToFront(t *testing.T) {
	b := newInbox()
	ordinary := newBoxHandle(false)
	dying := newBoxHandle(true)

	b.post(ordinary)
	b.post(dying)

	got, ok := b.tryDequeue()
	if !ok || got != dying {
		t.Fatal("expected the dying handle ahead of the ordinary one")
	}
}

func TestInboxTryDequeueEmpty(t *testing.T) {
	b := newInbox()
	if _, ok := b.tryDequeue(); ok {
		t.Fatal("expected tryDequeue to report empty on a fresh inbox")
	}
}

func TestInboxRingCoalescesWakeups(t *testing.T) {
	b := newInbox()
	b.ring()
	b.ring() // must not block: the channel already holds a pending wakeup

	select {
	case <-b.doorbell:
	default:
		t.Fatal("expected a pending wakeup after ring()")
	}
	select {
	case <-b.doorbell:
		t.Fatal("expected only one coalesced wakeup, not two")
	default:
	}
}
