package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP and identity metrics shared across handlers.
type Metrics struct {
	UsersCreated    prometheus.Counter
	LoginFailures   prometheus.Counter
	RequestDuration *prometheus.HistogramVec
	RateLimited     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "rotacultural_users_created_total",
			Help: "Total number of users created in the system",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rotacultural_login_failures_total",
			Help: "Total number of rejected login attempts",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rotacultural_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rotacultural_rate_limited_total",
			Help: "Requests rejected with 429 by endpoint class",
		}, []string{"class"}),
	}
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

func (m *Metrics) IncrementLoginFailures() {
	m.LoginFailures.Inc()
}

// ObserveRequest records one request's latency.
func (m *Metrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

// IncrementRateLimited counts one rejected request for class.
func (m *Metrics) IncrementRateLimited(class string) {
	m.RateLimited.WithLabelValues(class).Inc()
}
