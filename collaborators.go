package revexpire

// This file names the engine's external collaborators (spec.md §6): the
// hash store (reference counting, bucket locks), the storage backend
// (object bodies, metadata persistence) and the wall-clock source. None of
// these are implemented here — the engine only depends on these narrow
// interfaces, the same way cache_expire.c only ever calls HSH_*/STV_*
// functions without knowing their implementation.

// Object is the cached object a Handle describes. The engine reads Exp and
// XID; everything else belongs to the storage backend.
type Object struct {
	XID uint64 // caller-assigned identifier, used only in log records
	Exp exp
}

// exp holds the raw expiry attributes described in spec.md §3: t_origin
// (absolute seconds), ttl (seconds, may be negative meaning "dead"), grace
// and keep (seconds, >= 0).
type exp struct {
	tOrigin float64
	ttl     float64
	grace   float64
	keep    float64
}

// Clear marks the object as "never cached": negative TTL, zeroed
// grace/keep/origin. Callers reach it through an Object's Exp field.
func (e *exp) Clear() {
	e.ttl = -1
	e.grace = 0
	e.keep = 0
	e.tOrigin = 0
}

// SetExp installs the raw expiry attributes for an object, e.g. right after
// a backend response has been parsed into Cache-Control/Age/etc.
func (o *Object) SetExp(tOrigin, ttl, grace, keep float64) {
	o.Exp = exp{tOrigin: tOrigin, ttl: ttl, grace: grace, keep: keep}
}

// TOrigin, TTL, Grace and Keep expose exp's fields read-only to callers
// outside this package (the fetch package's tests, a storage backend
// deciding whether to persist an object at all). exp itself stays
// unexported so nothing outside the engine can construct one bypassing
// SetExp/Clear.
func (o *Object) TOrigin() float64 { return o.Exp.tOrigin }
func (o *Object) TTL() float64     { return o.Exp.ttl }
func (o *Object) Grace() float64   { return o.Exp.grace }
func (o *Object) Keep() float64    { return o.Exp.keep }

// Bucket is the hash store's per-object-identity bucket. The engine never
// looks inside it; BucketTryLock/BucketUnlock on HashStore are the only
// operations performed against it.
type Bucket struct {
	id uint64
}

// Stats is the subset of worker/engine counters the spec calls out by name
// (n_expired, n_lru_nuked, n_lru_moved, n_objcore). It round-trips through
// HashStore.Deref the same way VSC_C_main does in the C source.
type Stats struct {
	Expired   uint64
	LRUNuked  uint64
	LRUMoved  uint64
	NObjcore  int64
	BackendReq uint64
}

// HashStore is the reference-counting/bucket-locking collaborator (spec.md
// §6, "Consumed (from hash store)").
type HashStore interface {
	// Ref acquires one reference on h, used by Insert before admitting a
	// handle the engine doesn't already own.
	Ref(h *Handle)

	// Deref releases one reference on *h; may destroy the underlying
	// object if it was the last one. *h is set to nil on return, matching
	// HSH_DerefObjCore's "consumes the pointer" contract.
	Deref(stats *Stats, h **Handle)

	// BucketTryLock attempts to acquire h's bucket mutex without
	// blocking; false means contended.
	BucketTryLock(h *Handle) bool

	// BucketUnlock releases h's bucket mutex, previously acquired via
	// BucketTryLock.
	BucketUnlock(h *Handle)
}

// StorageBackend is the storage-side collaborator (spec.md §6, "Consumed
// (from storage backend)").
type StorageBackend interface {
	// GetObject follows h to its underlying object.
	GetObject(stats *Stats, h *Handle) (*Object, error)

	// PersistMetadata pushes h's current timer_when to the backing store.
	PersistMetadata(h *Handle) error

	// FreeStorage releases o's storage extents. Called once a nuke or
	// expiry has decided o must go, before the handle is dereferenced.
	FreeStorage(o *Object)

	// GetLRU looks up the LRU list that owns h.
	GetLRU(h *Handle) *LRU
}

// Clock is the wall/monotonic real-time source the engine reads seconds
// from (spec.md §6, "Consumed (from time source)"). Abstracted so tests can
// drive the expiry thread with a virtual clock instead of sleeping.
type Clock interface {
	Now() float64
}

// systemClock is the production Clock, backed by time.Now().
type systemClock struct{}

func (systemClock) Now() float64 { return nowReal() }
