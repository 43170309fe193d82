package revexpire

import "testing"

func newHeapHandle(when float64) *Handle {
	h := NewHandle(&Object{}, &Bucket{id: 1})
	h.timerWhen = when
	return h
}

func TestTimerHeapRootIsSmallest(t *testing.T) {
	h := newTimerHeap()
	a := newHeapHandle(30)
	b := newHeapHandle(10)
	c := newHeapHandle(20)

	h.insert(a)
	h.insert(b)
	h.insert(c)

	if h.root() != b {
		t.Fatalf("expected the smallest timer_when at the root, got %v", h.root().timerWhen)
	}
	if h.Len() != 3 {
		t.Fatalf("expected Len()==3, got %d", h.Len())
	}
}

func TestTimerHeapDeleteArbitraryElement(t *testing.T) {
	h := newTimerHeap()
	a := newHeapHandle(30)
	b := newHeapHandle(10)
	c := newHeapHandle(20)
	h.insert(a)
	h.insert(b)
	h.insert(c)

	h.delete(c)

	if h.Len() != 2 {
		t.Fatalf("expected Len()==2 after delete, got %d", h.Len())
	}
	if c.timerIdx != noIdx {
		t.Fatal("expected a deleted handle's timerIdx reset to noIdx")
	}
	if h.root() != b {
		t.Fatal("expected the root to be unaffected by deleting a non-root element")
	}
}

func TestTimerHeapReorderAfterWhenChanges(t *testing.T) {
	h := newTimerHeap()
	a := newHeapHandle(30)
	b := newHeapHandle(10)
	h.insert(a)
	h.insert(b)

	a.timerWhen = 1
	h.reorder(a)

	if h.root() != a {
		t.Fatalf("expected the lowered timer_when to rise to the root, got %v", h.root().timerWhen)
	}
}

func TestTimerHeapRootOnEmpty(t *testing.T) {
	h := newTimerHeap()
	if h.root() != nil {
		t.Fatal("expected a nil root on an empty heap")
	}
}
