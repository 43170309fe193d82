package revexpire

import "time"

/*
The expiry thread (spec.md §4.6) is the single goroutine allowed to touch
the heap. Everything else in this package only ever posts to the inbox and
waits for this loop to catch up — that division is what lets timerHeap
skip its own locking entirely.

Each iteration does exactly one of three things: drain one inbox entry,
sleep until the heap root is due (or the doorbell rings early), or retire
the heap root. tnext, once computed by processExpiry, is only trusted until
the next inbox item lands; processing an inbox entry can change the root,
so run() throws tnext away and recomputes on the following empty check
rather than risk oversleeping past a freshly-armed deadline.
*/

// Start launches the expiry thread as a background goroutine. There is no
// Stop: the loop runs for the lifetime of the process this engine belongs
// to, unlike the teacher's Stop/stopChan pair (shutting an Engine down mid
// process is not a scenario spec.md describes).
func (e *Engine) Start() {
	go e.run()
}

func (e *Engine) run() {
	var tnext float64
	for {
		h, ok := e.box.tryDequeue()
		if !ok {
			if now := e.clock.Now(); tnext > now {
				e.waitUntil(tnext)
			}
		}

		now := e.clock.Now()
		if ok {
			e.processInbox(h, now)
			tnext = 0
			continue
		}
		tnext = e.processExpiry(now)
	}
}

// waitUntil blocks until either tnext arrives or the doorbell rings,
// whichever comes first. The doorbell's buffer-of-1 means a post() that
// raced ahead of this call is never lost: it is already sitting in the
// channel by the time the select starts.
func (e *Engine) waitUntil(tnext float64) {
	d := time.Duration((tnext - e.clock.Now()) * float64(time.Second))
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-e.box.doorbell:
	case <-timer.C:
	}
}

// processInbox evacuates one handle out of the inbox (spec.md §4.6 step
// "process_inbox"). A dying handle is pulled straight out of the heap and
// dereferenced; anything else gets its pending INSERT/MOVE applied and is
// linked back onto its LRU.
func (e *Engine) processInbox(h *Handle, now float64) {
	lru := h.lru
	lru.mu.Lock()
	invariant(h.flags.has(flagOffLRU), "process_inbox: handle %v reached the inbox without OFFLRU", h.ID)

	dying := h.flags.has(flagDying)
	insert := h.flags.has(flagInsert)
	move := h.flags.has(flagMove)

	if dying {
		lru.mu.Unlock()
		if h.timerIdx != noIdx {
			e.heap.delete(h)
		}
		e.hash.Deref(e.workerStats, &h)
		return
	}

	h.flags &^= flagInsert | flagMove | flagOffLRU
	h.lastLRU = now
	lru.insertTail(h)
	lru.mu.Unlock()

	if move {
		h.timerWhen = expWhen(h.Object)
		if err := e.storage.PersistMetadata(h); err != nil {
			invariant(false, "process_inbox: PersistMetadata failed for %v: %v", h.ID, err)
		}
	}

	switch {
	case insert:
		e.heap.insert(h)
	case move:
		e.heap.reorder(h)
	}
}

// processExpiry inspects the heap root and either retires it or reports
// when to look again (spec.md §4.6 step "process_expiry"). The return
// value is an absolute wake time, not a duration: 0 means "look again
// immediately", matching the C source's tnext semantics.
func (e *Engine) processExpiry(now float64) float64 {
	h := e.heap.root()
	if h == nil {
		return now + e.idleSleep
	}
	if h.timerWhen > now {
		return h.timerWhen
	}

	lru := h.lru
	lru.mu.Lock()
	switch {
	case h.flags.has(flagOffLRU):
		// Rearm or a nuke already claimed this handle between the peek
		// above and this lock; let the inbox path finish the job and
		// just try again shortly.
		lru.mu.Unlock()
		return now + e.racedRetry
	case h.flags.has(flagBusy):
		lru.mu.Unlock()
		return now + e.busyRetry
	}
	h.flags |= flagDying | flagOffLRU
	lru.remove(h)
	lru.mu.Unlock()

	e.metrics.expired.Inc()
	e.heap.delete(h)

	obj, err := e.storage.GetObject(e.workerStats, h)
	invariant(err == nil && obj != nil, "process_expiry: GetObject failed for %v: %v", h.ID, err)
	age := now - obj.Exp.tOrigin
	xid := obj.XID
	e.storage.FreeStorage(obj)
	expKillReap(e.log, h, xid, age, "EXPIRE")

	e.hash.Deref(e.workerStats, &h)
	return 0
}
