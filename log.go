package revexpire

import "go.uber.org/zap"

// expKill emits a structured ExpKill record (spec.md §6): handle identity,
// old/new timer value, and flag bits, at minimum. The engine never formats
// or delivers these itself — the *zap.Logger is the caller-supplied sink,
// and a nil logger silently drops the record rather than panicking, since
// logging is never load-bearing for correctness.
func expKill(log *zap.Logger, event string, h *Handle, oldWhen, newWhen float64) {
	if log == nil {
		return
	}
	log.Debug("ExpKill",
		zap.String("event", event),
		zap.Stringer("handle", h.ID),
		zap.Float64("old_when", oldWhen),
		zap.Float64("new_when", newWhen),
		zap.Uint32("flags", uint32(h.flags)),
	)
}

// expKillMsg logs a free-form ExpKill record with no handle attached, for
// events like "LRU failed" that aren't about any one handle.
func expKillMsg(log *zap.Logger, msg string) {
	if log == nil {
		return
	}
	log.Debug("ExpKill", zap.String("msg", msg))
}

// expKillReap logs the final "this object is gone" record, with the age at
// death — the Go analogue of the C source's
// `VSLb(vsl, SLT_ExpKill, "%u %.0f", xid, EXP_Ttl(...) - now)`.
func expKillReap(log *zap.Logger, h *Handle, xid uint64, age float64, reason string) {
	if log == nil {
		return
	}
	log.Info("ExpKill",
		zap.String("reason", reason),
		zap.Stringer("handle", h.ID),
		zap.Uint64("xid", xid),
		zap.Float64("age_seconds", age),
	)
}
