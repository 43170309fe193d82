package revexpire

import (
	"math"

	"github.com/google/uuid"
)

/*
Handle is the engine's reference-counted descriptor for one cached object.
It is the only thing the engine itself ever touches directly; the object
body and its storage extents live behind the StorageBackend/HashStore
collaborators.

FLAG BITS

	OFFLRU  the handle is not linked in any LRU list right now
	INSERT  pending first heap insertion
	MOVE    timer_when changed, heap position needs reordering
	DYING   handle must be removed from the heap and dereferenced
	BUSY    object body is still being filled; never evict or expire

Flags are only ever read or written while holding the owning LRU's mutex,
or, once handed to the expiry thread via the inbox, exclusively by that
single goroutine. See engine.go for the lock-ordering contract.
*/
type Handle struct {
	ID uuid.UUID // opaque identity, for log records only — not an invariant

	Object *Object // back pointer to the object this handle describes
	Bucket *Bucket // owning hash bucket, for Ref/Deref/BucketTryLock

	refcnt uint32

	timerWhen float64 // scheduled wake time reflected in (or pending for) the heap
	timerIdx  int     // position in the heap, or noIdx

	lastLRU float64 // last time this handle entered an LRU list
	lru     *LRU    // weak reference to the owning LRU

	flags flagBits
}

// noIdx is the sentinel for "not currently in the heap".
const noIdx = -1

type flagBits uint32

const (
	flagOffLRU flagBits = 1 << iota
	flagInsert
	flagMove
	flagDying
	flagBusy
)

func (f flagBits) has(bits flagBits) bool { return f&bits != 0 }

// NewHandle constructs a handle bound to an object and a hash bucket. It
// starts with no heap position and the OFFLRU bit unset, i.e. "not yet
// handed to the engine" — Insert/Inject are responsible for taking it from
// there.
func NewHandle(object *Object, bucket *Bucket) *Handle {
	return &Handle{
		ID:       uuid.New(),
		Object:   object,
		Bucket:   bucket,
		refcnt:   1,
		timerIdx: noIdx,
	}
}

// RequestTTL is the per-request override EffectiveTtl takes into account;
// a zero or negative value means "no override".
type RequestTTL float64

// EffectiveTtl returns the effective TTL deadline for a request against o:
// o.t_origin + min(o.ttl, reqTTL) when reqTTL is a positive override, else
// o.t_origin + o.ttl. Pure; never mutates anything.
func EffectiveTtl(reqTTL RequestTTL, o *Object) float64 {
	r := o.Exp.ttl
	if reqTTL > 0 && float64(reqTTL) < r {
		r = float64(reqTTL)
	}
	return o.Exp.tOrigin + r
}

// expWhen computes the scheduled wake time: t_origin + ttl + grace + keep.
// Panics (the spec's "fatal invariant violation") if the result is not
// finite — a corrupt object yielding NaN/Inf can never happen in a correct
// caller.
func expWhen(o *Object) float64 {
	e := o.Exp
	when := e.tOrigin + e.ttl + e.grace + e.keep
	invariant(!math.IsNaN(when) && !math.IsInf(when, 0), "exp_when: non-finite wake time for object %v", o.XID)
	return when
}

// invariant panics with a formatted diagnostic when cond is false. This is
// the Go idiom for the spec's CHECK_OBJ_NOTNULL/AN/AZ assertions: a
// precondition violation is a programming error, not a recoverable
// condition, so it is fatal rather than silently degraded.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panicf(format, args...)
	}
}
