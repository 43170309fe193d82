package revexpire

import "sync"

// fakeClock is a manually-advanced Clock, so tests never sleep for real
// time to pass.
type fakeClock struct {
	mu  sync.Mutex
	now float64
}

func newFakeClock(t0 float64) *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeHash is a minimal HashStore: refcounts live on the Handle itself
// (mirroring how selectNukeVictim reads h.refcnt directly), bucket locks
// are real per-bucket mutexes so BucketTryLock contends honestly.
type fakeHash struct {
	mu      sync.Mutex
	buckets map[*Bucket]*sync.Mutex
	derefs  int
}

func newFakeHash() *fakeHash {
	return &fakeHash{buckets: make(map[*Bucket]*sync.Mutex)}
}

func (f *fakeHash) bucketMutex(b *Bucket) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.buckets[b]
	if m == nil {
		m = &sync.Mutex{}
		f.buckets[b] = m
	}
	return m
}

func (f *fakeHash) Ref(h *Handle) { h.refcnt++ }

func (f *fakeHash) Deref(stats *Stats, h **Handle) {
	f.mu.Lock()
	f.derefs++
	f.mu.Unlock()
	(*h).refcnt--
	*h = nil
}

func (f *fakeHash) BucketTryLock(h *Handle) bool { return f.bucketMutex(h.Bucket).TryLock() }
func (f *fakeHash) BucketUnlock(h *Handle)       { f.bucketMutex(h.Bucket).Unlock() }

// fakeStorage hands back the Object already attached to each Handle and
// records which ones were freed, rather than modeling real storage
// extents. GetLRU always returns the single partition configured at
// construction, since the test scenarios in spec.md §8 never exercise
// more than one LRU at a time.
type fakeStorage struct {
	mu       sync.Mutex
	lru      *LRU
	freed    map[*Object]bool
	persists int
}

func newFakeStorage(lru *LRU) *fakeStorage {
	return &fakeStorage{lru: lru, freed: make(map[*Object]bool)}
}

func (s *fakeStorage) GetObject(stats *Stats, h *Handle) (*Object, error) {
	return h.Object, nil
}

func (s *fakeStorage) PersistMetadata(h *Handle) error {
	s.mu.Lock()
	s.persists++
	s.mu.Unlock()
	return nil
}

func (s *fakeStorage) FreeStorage(o *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freed[o] = true
}

func (s *fakeStorage) GetLRU(h *Handle) *LRU { return s.lru }

// drainInbox processes every handle currently queued in e's inbox,
// stamping each with now. Test scenarios use this instead of Start() so
// heap/LRU state settles deterministically without a background goroutine.
func drainInbox(e *Engine, now float64) {
	for {
		h, ok := e.box.tryDequeue()
		if !ok {
			return
		}
		e.processInbox(h, now)
	}
}

// releaseCallerRef mimics the caller dropping its own reference once a
// freshly-inserted handle has been handed off to the engine: NewHandle
// starts refcnt at 1 for the creator, Insert's HashStore.Ref bumps it to 2
// for the engine, and real callers then deref their own copy, leaving the
// engine as sole owner. Without this, every inserted handle looks
// permanently referenced-elsewhere to selectNukeVictim.
func releaseCallerRef(hash *fakeHash, h *Handle) {
	tmp := h
	hash.Deref(nil, &tmp)
}

func newTestHandle(bucket *Bucket, tOrigin, ttl, grace, keep float64, xid uint64) *Handle {
	obj := &Object{XID: xid}
	obj.SetExp(tOrigin, ttl, grace, keep)
	return NewHandle(obj, bucket)
}
