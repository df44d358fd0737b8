package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the point registry: read-cache
// effectiveness, write counts and backing-store latency.
type Metrics struct {
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	PointsCreated prometheus.Counter
	PointsDeleted prometheus.Counter
	StoreDuration *prometheus.HistogramVec
}

// New registers the registry metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the registry metrics with reg. Tests pass a
// fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rotacultural_points_cache_hits_total",
			Help: "Registry reads served from the expiring cache",
		}, []string{"operation"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rotacultural_points_cache_misses_total",
			Help: "Registry reads that had to go to the backing store",
		}, []string{"operation"}),
		PointsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "rotacultural_points_created_total",
			Help: "Total number of cultural points created",
		}),
		PointsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rotacultural_points_deleted_total",
			Help: "Total number of cultural point deletions",
		}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rotacultural_points_store_duration_seconds",
			Help:    "Duration of backing-store calls made by the registry",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
	}
}

func (m *Metrics) RecordCacheHit(operation string) {
	m.CacheHits.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordCacheMiss(operation string) {
	m.CacheMisses.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementPointsCreated() {
	m.PointsCreated.Inc()
}

func (m *Metrics) IncrementPointsDeleted() {
	m.PointsDeleted.Inc()
}

// ObserveStore records the duration of a backing-store call.
// Call with time.Now() taken before the call.
func (m *Metrics) ObserveStore(operation string, start time.Time) {
	m.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
