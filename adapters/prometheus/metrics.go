// Package prometheus provides the Prometheus implementation of the store metrics.
package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/castore/core/es"
	"github.com/codewandler/castore/ports/kv"
)

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// storeMetrics implements es.Metrics using Prometheus.
type storeMetrics struct {
	// Write path
	commandDuration prometheus.Histogram
	commandsTotal   *prometheus.CounterVec
	eventsAppended  prometheus.Counter
	snapshotsSaved  prometheus.Counter

	// Read path
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	eventsReplayed prometheus.Counter

	// Maintenance
	keysArchived     *prometheus.CounterVec
	handlesRecovered *prometheus.CounterVec
}

// NewStoreMetrics creates a new Prometheus implementation of es.Metrics.
func NewStoreMetrics(reg prometheus.Registerer) es.Metrics {
	m := &storeMetrics{
		commandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "castore_command_duration_seconds",
			Help:    "Command processing latency in seconds",
			Buckets: defaultBuckets,
		}),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castore_commands_total",
			Help: "Total number of commands by outcome",
		}, []string{"outcome"}),

		eventsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "castore_events_appended_total",
			Help: "Total number of events appended",
		}),

		snapshotsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "castore_snapshots_saved_total",
			Help: "Total number of snapshots written",
		}),

		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "castore_cache_hits_total",
			Help: "Total number of aggregate cache hits",
		}),

		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "castore_cache_misses_total",
			Help: "Total number of aggregate cache misses",
		}),

		eventsReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "castore_events_replayed_total",
			Help: "Total number of events replayed while rebuilding aggregates",
		}),

		keysArchived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castore_keys_archived_total",
			Help: "Total number of keys moved to an archive",
		}, []string{"kind"}),

		handlesRecovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castore_handles_recovered_total",
			Help: "Total number of aggregates rebuilt by recover",
		}, []string{"clean"}),
	}

	reg.MustRegister(
		m.commandDuration,
		m.commandsTotal,
		m.eventsAppended,
		m.snapshotsSaved,
		m.cacheHits,
		m.cacheMisses,
		m.eventsReplayed,
		m.keysArchived,
		m.handlesRecovered,
	)

	return m
}

func (m *storeMetrics) CommandDuration() es.Timer {
	return prometheus.NewTimer(m.commandDuration)
}

func (m *storeMetrics) CommandProcessed(outcome string) {
	m.commandsTotal.WithLabelValues(outcome).Inc()
}

func (m *storeMetrics) EventsAppended(count int) {
	m.eventsAppended.Add(float64(count))
}

func (m *storeMetrics) SnapshotSaved() {
	m.snapshotsSaved.Inc()
}

func (m *storeMetrics) CacheHit() {
	m.cacheHits.Inc()
}

func (m *storeMetrics) CacheMiss() {
	m.cacheMisses.Inc()
}

func (m *storeMetrics) EventsReplayed(count int) {
	m.eventsReplayed.Add(float64(count))
}

func (m *storeMetrics) KeyArchived(kind kv.ArchiveKind) {
	m.keysArchived.WithLabelValues(string(kind)).Inc()
}

func (m *storeMetrics) HandleRecovered(clean bool) {
	m.handlesRecovered.WithLabelValues(strconv.FormatBool(clean)).Inc()
}

var _ es.Metrics = (*storeMetrics)(nil)
