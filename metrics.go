package revexpire

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

/*
metrics mirrors the handful of process-wide counters the C source bumps
directly on VSC_C_main (n_expired, n_lru_nuked, n_lru_moved, backend_req).
Prometheus is the corpus's standard choice for exactly this kind of
always-on internal counter (tutuengine, compozy both wire
prometheus/client_golang for service-level counters), so these are Counter
values registered against a caller-supplied registry rather than a
bespoke atomic-struct-plus-HTTP-handler.

NObjcore is a plain atomic.Int64 with no Prometheus gauge behind it: gauges
cannot be read back synchronously without scraping, and Engine.Stats() (the
snapshot request-handling code actually calls) needs an instant read.
*/
type metrics struct {
	expired    prometheus.Counter
	lruNuked   prometheus.Counter
	lruMoved   prometheus.Counter
	backendReq prometheus.Counter

	nObjcore atomic.Int64
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revexpire_expired_total",
			Help: "Objects removed because their effective wake time elapsed.",
		}),
		lruNuked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revexpire_lru_nuked_total",
			Help: "Objects force-evicted by NukeOne/NukeLRU to make space.",
		}),
		lruMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revexpire_lru_moved_total",
			Help: "Successful Touch promotions to the LRU tail.",
		}),
		backendReq: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revexpire_backend_requests_total",
			Help: "Backend fetches issued by the fetch package.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.expired, m.lruNuked, m.lruMoved, m.backendReq)
	}
	return m
}

// snapshot produces the plain Stats struct handed back by Engine.Stats —
// request-handling code should never need to import Prometheus to read a
// counter.
func (m *metrics) snapshot() Stats {
	return Stats{
		Expired:    counterValue(m.expired),
		LRUNuked:   counterValue(m.lruNuked),
		LRUMoved:   counterValue(m.lruMoved),
		BackendReq: counterValue(m.backendReq),
		NObjcore:   m.nObjcore.Load(),
	}
}

func counterValue(c prometheus.Counter) uint64 {
	var pb dto.Metric
	_ = c.Write(&pb)
	return uint64(pb.GetCounter().GetValue())
}
