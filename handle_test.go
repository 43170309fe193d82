package revexpire

import "testing"

func TestEffectiveTtlNoOverride(t *testing.T) {
	o := &Object{}
	o.SetExp(1000.0, 30.0, 0, 0)

	got := EffectiveTtl(0, o)
	if got != 1030.0 {
		t.Fatalf("expected 1030.0 with no override, got %v", got)
	}
}

func TestEffectiveTtlOverrideShortensDeadline(t *testing.T) {
	o := &Object{}
	o.SetExp(1000.0, 30.0, 0, 0)

	got := EffectiveTtl(RequestTTL(10), o)
	if got != 1010.0 {
		t.Fatalf("expected the shorter request TTL to win, got %v", got)
	}
}

func TestEffectiveTtlOverrideWiderThanObjectIgnored(t *testing.T) {
	o := &Object{}
	o.SetExp(1000.0, 30.0, 0, 0)

	got := EffectiveTtl(RequestTTL(300), o)
	if got != 1030.0 {
		t.Fatalf("a request TTL wider than the object's own must not extend it, got %v", got)
	}
}

func TestExpWhenIncludesGraceAndKeep(t *testing.T) {
	o := &Object{}
	o.SetExp(1000.0, 10.0, 5.0, 2.0)

	if got := expWhen(o); got != 1017.0 {
		t.Fatalf("expected t_origin+ttl+grace+keep = 1017.0, got %v", got)
	}
}

func TestNewHandleStartsOffHeapWithOneRef(t *testing.T) {
	o := &Object{}
	o.SetExp(1000.0, 10.0, 0, 0)
	h := NewHandle(o, &Bucket{id: 1})

	if h.refcnt != 1 {
		t.Fatalf("expected a fresh handle to carry the creator's reference, got refcnt=%d", h.refcnt)
	}
	if h.timerIdx != noIdx {
		t.Fatalf("expected a fresh handle to start outside the heap, got timerIdx=%d", h.timerIdx)
	}
	if h.flags.has(flagOffLRU) {
		t.Fatal("a fresh handle is not yet owned by the engine, so it has no OFFLRU opinion")
	}
}

func TestInvariantPanicsOnViolation(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected invariant(false, ...) to panic")
		}
	}()
	invariant(false, "boom: %d", 1)
}
