package main

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/relaycache/revexpire"
)

/*
memHashStore is a toy stand-in for the real hash store: one bucket per
handle (this demo never models two identities colliding into the same
bucket), and a lock-free atomic.Int32 per handle standing in for the
object-core refcount spec.md §6 describes as living in the hash store, not
the engine. go.uber.org/atomic's typed wrapper is used here rather than a
bare sync/atomic.Int32 purely so this file reads the same way the rest of
the demo's counters do — there is no functional difference for a
single-field counter like this one.

Note this refcount is independent of Handle's own internal refcnt field:
that field lives in package revexpire and is the engine's own bookkeeping,
mutated only by engine code (e.g. selectNukeVictim). A real HashStore
implementation outside that package has no way to touch it and isn't
meant to — Ref/Deref here track this demo's *own* notion of "is anyone
else still holding this object", used only to decide when to drop the
simulated bucket bookkeeping.
*/
type memHashStore struct {
	mu      sync.Mutex
	refs    map[*revexpire.Handle]*atomic.Int32
	buckets map[*revexpire.Handle]*sync.Mutex
}

func newMemHashStore() *memHashStore {
	return &memHashStore{
		refs:    make(map[*revexpire.Handle]*atomic.Int32),
		buckets: make(map[*revexpire.Handle]*sync.Mutex),
	}
}

func (m *memHashStore) counter(h *revexpire.Handle) *atomic.Int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.refs[h]
	if !ok {
		c = atomic.NewInt32(0)
		m.refs[h] = c
	}
	return c
}

func (m *memHashStore) bucketMutex(h *revexpire.Handle) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[h]
	if !ok {
		b = &sync.Mutex{}
		m.buckets[h] = b
	}
	return b
}

func (m *memHashStore) Ref(h *revexpire.Handle) {
	m.counter(h).Inc()
}

func (m *memHashStore) Deref(stats *revexpire.Stats, h **revexpire.Handle) {
	hd := *h
	if m.counter(hd).Dec() <= 0 {
		m.mu.Lock()
		delete(m.refs, hd)
		delete(m.buckets, hd)
		m.mu.Unlock()
	}
	*h = nil
}

func (m *memHashStore) BucketTryLock(h *revexpire.Handle) bool {
	return m.bucketMutex(h).TryLock()
}

func (m *memHashStore) BucketUnlock(h *revexpire.Handle) {
	m.bucketMutex(h).Unlock()
}
