package revexpire

import "container/heap"

/*
timerHeap is the global, single-thread-owned min-heap keyed by each
handle's timer_when (spec.md §4.3). It is built on the standard library's
container/heap interface: heap.Fix/heap.Push/heap.Pop already call Swap on
every element movement, which is exactly the hook the spec's binheap_update
callback needs to keep timer_idx current, so there is no reason to hand-roll
the sift-up/sift-down bookkeeping.

timerHeap is never locked itself — the spec's single-reader contract (only
the expiry thread ever touches the heap) is enforced by construction: every
call to insert/delete/reorder/root happens from inside the expiry thread's
loop in thread.go.
*/
type timerHeap struct {
	items []*Handle
}

func newTimerHeap() *timerHeap {
	h := &timerHeap{}
	heap.Init(h)
	return h
}

// Len, Less, Swap, Push, Pop implement heap.Interface. Callers should use
// the insert/delete/reorder/root wrappers below instead of calling these
// directly.

func (h *timerHeap) Len() int { return len(h.items) }

// Less implements the spec's comparator: strictly a.timer_when <
// b.timer_when. No tie-breaker; equal-time entries may expire in either
// order.
func (h *timerHeap) Less(i, j int) bool {
	return h.items[i].timerWhen < h.items[j].timerWhen
}

func (h *timerHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].timerIdx = i
	h.items[j].timerIdx = j
}

func (h *timerHeap) Push(x any) {
	hd := x.(*Handle)
	hd.timerIdx = len(h.items)
	h.items = append(h.items, hd)
}

func (h *timerHeap) Pop() any {
	n := len(h.items)
	hd := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	hd.timerIdx = noIdx
	return hd
}

// insert places hd into the heap. hd must not already be in the heap.
func (h *timerHeap) insert(hd *Handle) {
	invariant(hd.timerIdx == noIdx, "timerHeap.insert: handle %v already in heap at %d", hd.ID, hd.timerIdx)
	heap.Push(h, hd)
	invariant(hd.timerIdx != noIdx, "timerHeap.insert: handle %v not placed", hd.ID)
}

// delete removes hd from the heap by its current index. hd must be in the
// heap.
func (h *timerHeap) delete(hd *Handle) {
	invariant(hd.timerIdx != noIdx, "timerHeap.delete: handle %v not in heap", hd.ID)
	heap.Remove(h, hd.timerIdx)
	invariant(hd.timerIdx == noIdx, "timerHeap.delete: handle %v still indexed", hd.ID)
}

// reorder re-establishes the heap property after hd.timerWhen changed in
// place. hd must already be in the heap.
func (h *timerHeap) reorder(hd *Handle) {
	invariant(hd.timerIdx != noIdx, "timerHeap.reorder: handle %v not in heap", hd.ID)
	heap.Fix(h, hd.timerIdx)
	invariant(hd.timerIdx != noIdx, "timerHeap.reorder: handle %v lost its index", hd.ID)
}

// root peeks at the handle with the smallest timer_when, or nil if the heap
// is empty. Does not remove it.
func (h *timerHeap) root() *Handle {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}
