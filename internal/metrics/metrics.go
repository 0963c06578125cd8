// Package metrics exposes the prometheus metrics for the coordinator and
// worker daemons, registered the way the teacher registers its cluster
// metrics: package-level collectors registered through promauto at package
// initialization and served over an HTTP handler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

var (
	// Coordinator metrics.
	NamespaceOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "godfs_coordinator_namespace_ops_total",
		Help: "Namespace operations processed, by operation and error kind (\"\" on success).",
	}, []string{"op", "error_kind"})

	NamespaceOpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "godfs_coordinator_namespace_op_duration_seconds",
		Help:    "Latency of namespace operations, by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	WorkersRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "godfs_coordinator_workers_registered",
		Help: "Number of workers currently in the worker table.",
	})

	WorkersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "godfs_coordinator_workers_live",
		Help: "Number of workers whose last heartbeat is within the dead interval.",
	})

	BlockReplicaDeficit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "godfs_coordinator_block_replica_deficit",
		Help: "Sum, across all blocks, of (replication factor - live replica count) where positive.",
	})

	ReReplicationCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "godfs_coordinator_rereplication_cycles_total",
		Help: "Number of re-replication scan cycles completed.",
	})

	ReReplicationCopies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "godfs_coordinator_rereplication_copies_total",
		Help: "Block copies performed by the re-replication loop, by outcome.",
	}, []string{"outcome"})

	// Worker metrics.
	BlocksStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "godfs_worker_blocks_stored",
		Help: "Number of blocks currently stored on this worker.",
	})

	BytesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "godfs_worker_bytes_stored_total",
		Help: "Total bytes written to this worker's storage root.",
	})

	ForwardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "godfs_worker_forwards_total",
		Help: "Replication fan-out forwards attempted by this worker, by outcome.",
	}, []string{"outcome"})

	HeartbeatFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "godfs_worker_heartbeat_failures_total",
		Help: "Heartbeat RPCs to the coordinator that failed.",
	})
)

// Handler returns the HTTP handler that serves the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for a single observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a Timer.
func NewTimer() *Timer { return &Timer{start: time.Now()} }

// ObserveDuration records the elapsed time on a Histogram.
func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time against a HistogramVec with
// the given label values.
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labelValues ...string) {
	h.WithLabelValues(labelValues...).Observe(time.Since(t.start).Seconds())
}
