package protocore

// metrics.go is a thin abstraction over Prometheus, generalizing the
// teacher's metricsSink/noopMetrics/promMetrics split from per-shard
// cache counters to the Space-level signals SPEC_FULL.md's domain-stack
// table calls for: GC pause duration and sweep counts, a live-cell
// gauge, a safepoint-wait histogram, and module-cache hit/miss counters
// (which count successful and failed get_import_module calls; a module
// served from the cache and one freshly resolved count alike).
// When the embedder does not opt in via WithMetrics, a no-op sink is
// used and nothing on the hot path pays for metric bookkeeping.
//
// © 2025 protocore authors. MIT License.

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink abstracts the concrete backend (Prometheus vs. noop); Space
// only ever calls through this interface.
type metricsSink interface {
	incGCSweep()
	observeGCPause(d time.Duration)
	setLiveCells(n int64)
	observeSafepointWait(d time.Duration)
	incModuleCacheHit()
	incModuleCacheMiss()
}

type noopMetrics struct{}

func (noopMetrics) incGCSweep()                     {}
func (noopMetrics) observeGCPause(time.Duration)     {}
func (noopMetrics) setLiveCells(int64)               {}
func (noopMetrics) observeSafepointWait(time.Duration) {}
func (noopMetrics) incModuleCacheHit()               {}
func (noopMetrics) incModuleCacheMiss()              {}

type promMetrics struct {
	gcSweeps         prometheus.Counter
	gcPause          prometheus.Histogram
	liveCells        prometheus.Gauge
	safepointWait    prometheus.Histogram
	moduleCacheHits  prometheus.Counter
	moduleCacheMiss  prometheus.Counter
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	pm := &promMetrics{
		gcSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "protocore",
			Name:      "gc_sweeps_total",
			Help:      "Number of completed generational GC sweeps.",
		}),
		gcPause: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "protocore",
			Name:      "gc_pause_seconds",
			Help:      "Stop-the-world pause duration per GC cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		liveCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "protocore",
			Name:      "live_cells",
			Help:      "Number of live cells after the most recent sweep.",
		}),
		safepointWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "protocore",
			Name:      "safepoint_wait_seconds",
			Help:      "Time a managed thread spent parked at a safepoint.",
			Buckets:   prometheus.DefBuckets,
		}),
		moduleCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "protocore",
			Name:      "module_cache_hits_total",
			Help:      "Number of get_import_module calls that returned a module, from the cache or the resolution chain.",
		}),
		moduleCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "protocore",
			Name:      "module_cache_misses_total",
			Help:      "Number of get_import_module calls that returned an error.",
		}),
	}
	reg.MustRegister(pm.gcSweeps, pm.gcPause, pm.liveCells, pm.safepointWait, pm.moduleCacheHits, pm.moduleCacheMiss)
	return pm
}

func (m *promMetrics) incGCSweep()                       { m.gcSweeps.Inc() }
func (m *promMetrics) observeGCPause(d time.Duration)     { m.gcPause.Observe(d.Seconds()) }
func (m *promMetrics) setLiveCells(n int64)               { m.liveCells.Set(float64(n)) }
func (m *promMetrics) observeSafepointWait(d time.Duration) { m.safepointWait.Observe(d.Seconds()) }
func (m *promMetrics) incModuleCacheHit()                 { m.moduleCacheHits.Inc() }
func (m *promMetrics) incModuleCacheMiss()                { m.moduleCacheMiss.Inc() }

// newMetricsSink decides which implementation to use, matching the
// teacher's "nil registry means opt out" convention.
func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
