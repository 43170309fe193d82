package revexpire

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

/*
Engine is the process-wide expiry-and-LRU core (spec.md §2, components
C1–C5 combined). There is exactly one Engine per process in the system this
is modeled on — the design note in spec.md §9 calls this out explicitly —
but nothing here actually enforces a singleton; tests construct as many as
they like against fake collaborators.

LOCK ORDERING (spec.md §5), top down: bucket -> LRU -> engine. The engine
mutex (embedded in box, the inbox) is never held while acquiring an LRU or
bucket mutex. NukeOne briefly takes an LRU mutex then tries a bucket mutex;
on failure it retreats without blocking.
*/
type Engine struct {
	hash    HashStore
	storage StorageBackend
	clock   Clock
	log     *zap.Logger
	metrics *metrics

	box  *inbox
	heap *timerHeap

	// idleSleep is the duration process_expiry sleeps for when the heap
	// is empty. spec.md §4.6/§9: any value in [1s, 10s] is semantically
	// identical; 355/113 (~pi) is kept verbatim as the arbitrary constant
	// the original uses.
	idleSleep float64
	// busyRetry is the fixed retry interval used when process_expiry
	// finds a BUSY root (spec.md §4.6 step 3).
	busyRetry float64
	// racedRetry is the fixed retry interval used when process_expiry
	// discovers OFFLRU already set by a concurrent path.
	racedRetry float64

	// nukeBatch bounds the domain-expansion NukeLRU bulk-eviction path
	// (spec.md §9 design note: the bulk nuke is "not yet" in the source;
	// this is the supplemented implementation, batched the same way the
	// compiled-out #if 0 block batches it with NUKEBUF).
	nukeBatch int

	// workerStats is passed through to HashStore/StorageBackend calls,
	// mirroring the worker->stats argument threaded through the C calls.
	// The engine's own counters live in metrics, not here.
	workerStats *Stats
}

// Option configures an Engine at construction time (functional options,
// same pattern the teacher repo used for cache configuration).
type Option func(*Engine)

// WithLogger attaches the *zap.Logger ExpKill records are written to. A nil
// or omitted logger silently drops records.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetricsRegisterer registers the engine's Prometheus counters against
// reg instead of leaving them unregistered (still readable via Stats()).
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metrics = newMetrics(reg) }
}

// WithIdleSleep overrides the empty-heap idle sleep duration. Must be a
// positive number of seconds; the spec permits anything in [1,10]s but
// does not require this constructor to enforce that range.
func WithIdleSleep(seconds float64) Option {
	return func(e *Engine) { e.idleSleep = seconds }
}

// WithNukeBatch overrides the batch size NukeLRU removes per lock
// acquisition (default 10, matching the compiled-out source's NUKEBUF).
func WithNukeBatch(n int) Option {
	return func(e *Engine) { e.nukeBatch = n }
}

// NewEngine constructs an Engine. hash and storage are the external
// collaborators from spec.md §6; clock may be nil to use the real
// wall-clock.
func NewEngine(hash HashStore, storage StorageBackend, clock Clock, opts ...Option) *Engine {
	if clock == nil {
		clock = systemClock{}
	}
	e := &Engine{
		hash:        hash,
		storage:     storage,
		clock:       clock,
		box:         newInbox(),
		heap:        newTimerHeap(),
		idleSleep:   355.0 / 113.0,
		busyRetry:   0.01,
		racedRetry:  1e-3,
		nukeBatch:   10,
		workerStats: &Stats{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = newMetrics(nil)
	}
	return e
}

// NewLRU constructs an LRU list wired to this engine's metrics, so Touch's
// moved-counter bump is visible from Stats().
func (e *Engine) NewLRU(dontMove bool) *LRU {
	l := NewLRU()
	l.DontMove = dontMove
	l.metrics = e.metrics
	return l
}

// Stats returns a point-in-time snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	return e.metrics.snapshot()
}

// RecordBackendFetch bumps the backend-request counter (the domain
// expansion of VSC_C_main->backend_req++ in the fetch routine the
// spec's §1 calls out as an external caller). The fetch package builds
// Objects but never touches an Engine directly, so callers that issue a
// backend request call this once the round trip completes.
func (e *Engine) RecordBackendFetch() {
	e.metrics.backendReq.Inc()
}

// Insert admits h into the engine (spec.md §4.5). h must describe an
// object whose Exp fields are already set; the engine acquires its own
// reference via HashStore.Ref and computes the wake time from the object.
func (e *Engine) Insert(h *Handle, now float64) {
	invariant(!h.flags.has(flagOffLRU), "Insert: handle %v already OFFLRU", h.ID)
	invariant(h.Object.Exp.tOrigin != 0, "Insert: t_origin is zero for handle %v", h.ID)

	e.hash.Ref(h)
	h.lastLRU = now

	lru := e.storage.GetLRU(h)
	lru.mu.Lock()
	lru.nObjcore++
	h.flags |= flagOffLRU | flagInsert
	h.lru = lru
	lru.mu.Unlock()

	h.timerWhen = expWhen(h.Object)
	if err := e.storage.PersistMetadata(h); err != nil {
		invariant(false, "Insert: PersistMetadata failed for %v: %v", h.ID, err)
	}
	e.metrics.nObjcore.Add(1)

	e.box.post(h)
}

// Inject admits h into the engine the same way Insert does, except the
// caller already owns the engine's reference (it is "injected", not freshly
// referenced) and supplies the wake time directly rather than having it
// derived from the object.
func (e *Engine) Inject(h *Handle, lru *LRU, when float64) {
	invariant(!h.flags.has(flagOffLRU), "Inject: handle %v already OFFLRU", h.ID)

	lru.mu.Lock()
	lru.nObjcore++
	h.flags |= flagOffLRU | flagInsert
	h.lru = lru
	lru.mu.Unlock()

	h.timerWhen = when
	if err := e.storage.PersistMetadata(h); err != nil {
		invariant(false, "Inject: PersistMetadata failed for %v: %v", h.ID, err)
	}
	e.metrics.nObjcore.Add(1)

	e.box.post(h)
}

// Touch is the best-effort LRU-tail promotion (spec.md §4.5): it never
// blocks on contention, trading strict ordering for hot-path throughput.
func (e *Engine) Touch(h *Handle) int {
	return h.lru.Touch(h)
}

// Rearm tells the engine that h's expiry attributes changed while it was
// still live (spec.md §4.5). If the newly computed wake time matches the
// one already reflected in the heap, this is a no-op.
func (e *Engine) Rearm(h *Handle) {
	when := expWhen(h.Object)

	expKill(e.log, "EXP_Rearm", h, h.timerWhen, when)

	if when == h.timerWhen {
		return
	}

	lru := h.lru
	lru.mu.Lock()

	if when < 0 {
		h.flags |= flagDying
	} else {
		h.flags |= flagMove
	}

	owned := true
	if h.flags.has(flagOffLRU) {
		// Another path (NukeOne, process_expiry, a concurrent Rearm)
		// already owns this handle's transition; discard ours.
		owned = false
	} else {
		h.flags |= flagOffLRU
		lru.remove(h)
	}
	lru.mu.Unlock()

	if owned {
		e.box.post(h)
	}
}

// NukeOne attempts to reclaim one object from lru (spec.md §4.5). Returns
// 1 if it nuked a victim, -1 if no candidate was found. It never returns 0
// per spec's documented return set, since every walked candidate is either
// skipped or taken.
func (e *Engine) NukeOne(lru *LRU) int {
	victim := e.selectNukeVictim(lru)
	if victim == nil {
		expKillMsg(e.log, "LRU failed")
		return -1
	}

	obj, err := e.storage.GetObject(e.workerStats, victim)
	invariant(err == nil && obj != nil, "NukeOne: GetObject failed for %v: %v", victim.ID, err)
	e.storage.FreeStorage(obj)

	e.box.post(victim)

	xid := obj.XID
	expKillReap(e.log, victim, xid, 0, "LRU")

	e.hash.Deref(e.workerStats, &victim) // release the nuker's own extra reference
	return 1
}

// selectNukeVictim walks lru from head to tail looking for the first
// handle that is not dying, not busy, has no reference beyond the
// engine's, and whose bucket can be locked without blocking. On success it
// has already flagged the handle DYING|OFFLRU and unlinked it.
func (e *Engine) selectNukeVictim(lru *LRU) *Handle {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	var victim *Handle
	for h := lru.front(); h != nil; h = lru.next(h) {
		invariant(!h.flags.has(flagDying), "NukeOne: dying handle %v found on LRU", h.ID)

		if h.flags.has(flagBusy) {
			continue
		}
		if h.refcnt > 1 {
			continue
		}
		if !e.hash.BucketTryLock(h) {
			continue
		}
		if h.refcnt == 1 {
			h.flags |= flagDying | flagOffLRU
			h.refcnt++
			e.metrics.lruNuked.Inc()
			lru.remove(h)
			victim = h
		}
		e.hash.BucketUnlock(h)
		if victim != nil {
			break
		}
	}
	return victim
}

// NukeLRU is the domain-expansion bulk eviction path (spec.md §9: the
// compiled-out EXP_NukeLRU). It drains lru in batches of e.nukeBatch,
// unconditionally — no refcnt/BUSY check, matching the #if 0 source, which
// treats a bulk nuke as retiring the whole LRU rather than picking
// individual safe victims.
//
// Unlike the #if 0 source, each victim is handed to the inbox instead of
// having the heap manipulated directly from this goroutine: the heap is
// single-writer, owned exclusively by the expiry thread (spec.md §5), and
// the source's direct binheap_delete from an arbitrary caller thread is
// exactly the kind of cross-thread heap mutation that invariant forbids.
// Routing through the inbox keeps that invariant intact at the cost of one
// extra hop; this is a deliberate deviation from the disabled source, not
// an oversight — see DESIGN.md.
func (e *Engine) NukeLRU(lru *LRU) int {
	total := 0
	for {
		batch := e.drainNukeBatch(lru)
		if len(batch) == 0 {
			return total
		}
		for _, h := range batch {
			obj, err := e.storage.GetObject(e.workerStats, h)
			invariant(err == nil && obj != nil, "NukeLRU: GetObject failed for %v: %v", h.ID, err)
			e.storage.FreeStorage(obj)
			e.metrics.lruNuked.Inc()
			e.box.post(h)
			expKillReap(e.log, h, obj.XID, 0, "LRU")
			total++
		}
	}
}

// drainNukeBatch removes up to e.nukeBatch handles from the head of lru,
// flagging each DYING|OFFLRU. Caller is responsible for posting them to the
// inbox once released from the LRU lock.
func (e *Engine) drainNukeBatch(lru *LRU) []*Handle {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	var batch []*Handle
	for len(batch) < e.nukeBatch {
		h := lru.front()
		if h == nil {
			break
		}
		lru.remove(h)
		h.flags |= flagDying | flagOffLRU
		batch = append(batch, h)
	}
	return batch
}
