// Package metrics exposes engine activity as Prometheus collectors. It
// implements the engine's Hooks interface so decision counts, latencies, and
// fault rates land in whatever registry the host application scrapes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/aicache"
)

type Hooks struct {
	decisions       *prometheus.CounterVec
	decisionLatency *prometheus.HistogramVec
	evictionRuns    *prometheus.CounterVec
	evictedEntries  *prometheus.CounterVec
	evictedBytes    *prometheus.CounterVec
	expiredSwept    prometheus.Counter
	indexPruned     *prometheus.CounterVec
	auditDropped    prometheus.Counter
	auditErrors     prometheus.Counter
	embeddingFaults prometheus.Counter
	storageFaults   *prometheus.CounterVec
	storageRejected prometheus.Counter
}

var _ aicache.Hooks = (*Hooks)(nil)

// New registers the collectors with reg and returns the Hooks. A nil reg
// uses the default registry.
func New(reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Hooks{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "decisions_total",
			Help:      "Cache decisions by operation type",
		}, []string{"op_type"}),
		decisionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aicache",
			Name:      "decision_latency_seconds",
			Help:      "Decision pipeline latency",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"op_type"}),
		evictionRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "eviction_runs_total",
			Help:      "Eviction runs by policy",
		}, []string{"policy"}),
		evictedEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "evicted_entries_total",
			Help:      "Entries removed by eviction, by policy",
		}, []string{"policy"}),
		evictedBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "evicted_bytes_total",
			Help:      "Bytes reclaimed by eviction, by policy",
		}, []string{"policy"}),
		expiredSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "expired_swept_total",
			Help:      "Expired entries removed by sweep or bulk invalidation",
		}),
		indexPruned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "index_pruned_total",
			Help:      "Stale semantic index entries pruned, by reason",
		}, []string{"reason"}),
		auditDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "audit_dropped_total",
			Help:      "Audit records dropped because the recorder queue was full",
		}),
		auditErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "audit_persist_errors_total",
			Help:      "Audit sink persistence failures",
		}),
		embeddingFaults: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "embedding_faults_total",
			Help:      "Embedding backend failures",
		}),
		storageFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "storage_faults_total",
			Help:      "Persistent storage failures by operation",
		}, []string{"op"}),
		storageRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aicache",
			Name:      "storage_rejected_total",
			Help:      "Write-throughs rejected by the storage backend",
		}),
	}
}

func (h *Hooks) Decision(opType string, elapsed time.Duration) {
	h.decisions.WithLabelValues(opType).Inc()
	h.decisionLatency.WithLabelValues(opType).Observe(elapsed.Seconds())
}

func (h *Hooks) Eviction(policy string, entries int, bytes int64) {
	h.evictionRuns.WithLabelValues(policy).Inc()
	h.evictedEntries.WithLabelValues(policy).Add(float64(entries))
	h.evictedBytes.WithLabelValues(policy).Add(float64(bytes))
}

func (h *Hooks) ExpiredSwept(entries int) {
	h.expiredSwept.Add(float64(entries))
}

func (h *Hooks) IndexPruned(_, reason string) {
	h.indexPruned.WithLabelValues(reason).Inc()
}

func (h *Hooks) AuditDropped(n int) {
	h.auditDropped.Add(float64(n))
}

func (h *Hooks) AuditPersistError(error) {
	h.auditErrors.Inc()
}

func (h *Hooks) EmbeddingFault(error) {
	h.embeddingFaults.Inc()
}

func (h *Hooks) StorageFault(op string, _ error) {
	h.storageFaults.WithLabelValues(op).Inc()
}

func (h *Hooks) StorageRejected(string) {
	h.storageRejected.Inc()
}
