package revexpire

import "testing"

func TestLRUInsertTailOrdering(t *testing.T) {
	l := NewLRU()
	h1 := NewHandle(&Object{}, &Bucket{id: 1})
	h2 := NewHandle(&Object{}, &Bucket{id: 1})
	h3 := NewHandle(&Object{}, &Bucket{id: 1})

	l.mu.Lock()
	l.insertTail(h1)
	l.insertTail(h2)
	l.insertTail(h3)
	l.mu.Unlock()

	if l.front() != h1 {
		t.Fatal("expected h1 at the head")
	}
	if l.next(h1) != h2 || l.next(h2) != h3 {
		t.Fatal("expected insertion order h1 -> h2 -> h3")
	}
	if l.next(h3) != nil {
		t.Fatal("expected nil past the tail")
	}
	if l.Len() != 3 {
		t.Fatalf("expected Len()==3, got %d", l.Len())
	}
}

func TestLRURemoveSplicesCorrectly(t *testing.T) {
	l := NewLRU()
	h1 := NewHandle(&Object{}, &Bucket{id: 1})
	h2 := NewHandle(&Object{}, &Bucket{id: 1})
	h3 := NewHandle(&Object{}, &Bucket{id: 1})

	l.mu.Lock()
	l.insertTail(h1)
	l.insertTail(h2)
	l.insertTail(h3)
	l.remove(h2)
	l.mu.Unlock()

	if l.next(h1) != h3 {
		t.Fatal("expected h1 to connect directly to h3 after removing h2")
	}
	if l.Len() != 2 {
		t.Fatalf("expected Len()==2 after removal, got %d", l.Len())
	}

	// removing an already-removed handle is a silent no-op
	l.mu.Lock()
	l.remove(h2)
	l.mu.Unlock()
	if l.Len() != 2 {
		t.Fatal("double-remove must not change Len()")
	}
}

func TestLRUNObjcoreCountsAllEverAssociated(t *testing.T) {
	l := NewLRU()
	h := NewHandle(&Object{}, &Bucket{id: 1})

	l.mu.Lock()
	l.nObjcore++
	l.insertTail(h)
	l.remove(h) // off-list now, but still counted
	l.mu.Unlock()

	if l.NObjcore() != 1 {
		t.Fatalf("expected NObjcore to persist past removal, got %d", l.NObjcore())
	}
}

func TestLRUTouchDontMove(t *testing.T) {
	l := NewLRU()
	l.DontMove = true
	h := NewHandle(&Object{}, &Bucket{id: 1})
	l.mu.Lock()
	l.insertTail(h)
	l.mu.Unlock()

	if got := l.Touch(h); got != 0 {
		t.Fatalf("expected DontMove to make Touch a no-op returning 0, got %d", got)
	}
}
