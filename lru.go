package revexpire

import (
	"container/list"

	"github.com/sasha-s/go-deadlock"
)

/*
LRU is one storage partition's insertion-ordered list of live, on-list
handles (spec.md §4.2). Ordering is only *approximately* least-recently-used
by design: Touch uses a try-lock and silently skips under contention, which
the spec calls out as an explicit throughput/fairness tradeoff, not a bug.

The mutex here also protects flag bits of any handle currently linked into
lruHead — not just the list linkage itself — because OFFLRU is defined in
terms of "is this handle in an LRU list", and flipping that bit is only ever
safe alongside the corresponding splice.
*/
type LRU struct {
	mu deadlock.Mutex

	lruHead list.List
	// index lets splice-out (Rearm or process_expiry taking a handle back
	// off the list, NukeOne picking a victim) find a handle's *list.Element in
	// O(1) instead of walking the list.
	index map[*Handle]*list.Element

	nObjcore int

	// DontMove disables the Touch fast path for storage backends that
	// don't benefit from LRU reordering (e.g. a persistent store).
	DontMove bool

	metrics *metrics // nil-safe; set by Engine.NewLRU
}

// NewLRU constructs an empty, ready-to-use LRU list with no metrics
// attached (bump counters are skipped). Engine.NewLRU is the constructor
// request-handling code should normally use instead.
func NewLRU() *LRU {
	return &LRU{index: make(map[*Handle]*list.Element)}
}

// insertTail links h at the tail of the list. Caller must hold mu.
func (l *LRU) insertTail(h *Handle) {
	l.index[h] = l.lruHead.PushBack(h)
}

// remove splices h out of the list, if it is linked. Caller must hold mu.
func (l *LRU) remove(h *Handle) {
	if e, ok := l.index[h]; ok {
		l.lruHead.Remove(e)
		delete(l.index, h)
	}
}

// front returns the handle at the head of the list (the oldest), or nil.
// Caller must hold mu.
func (l *LRU) front() *Handle {
	e := l.lruHead.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*Handle)
}

// next returns the handle following h in the list, or nil at the tail.
// Caller must hold mu.
func (l *LRU) next(h *Handle) *Handle {
	e, ok := l.index[h]
	if !ok || e.Next() == nil {
		return nil
	}
	return e.Next().Value.(*Handle)
}

// Len reports the number of handles currently on this LRU list.
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lruHead.Len()
}

// NObjcore reports the total number of handles ever associated with this
// LRU (spec's n_objcore), including ones currently off-list (enqueued or
// in the heap).
func (l *LRU) NObjcore() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nObjcore
}

// Touch is the best-effort LRU-tail promotion described in spec.md §4.5.
// Returns 1 if it acted (or decided no action was needed), 0 if it skipped
// due to contention or DontMove.
func (l *LRU) Touch(h *Handle) int {
	if l.DontMove {
		return 0
	}
	if !l.mu.TryLock() {
		return 0
	}
	defer l.mu.Unlock()

	if !h.flags.has(flagOffLRU) {
		l.remove(h)
		l.insertTail(h)
		if l.metrics != nil {
			l.metrics.lruMoved.Inc()
		}
	}
	return 1
}
