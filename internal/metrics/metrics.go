// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records HTTP and domain metrics.
type Collector struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	recsCreated        *prometheus.CounterVec
	recsDeleted        *prometheus.CounterVec
	staffPickChanges   *prometheus.CounterVec
	staffPickAnomalies prometheus.Counter
	usersCreated       prometheus.Counter
	breakerState       *prometheus.GaugeVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hypeshelf_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hypeshelf_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		recsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hypeshelf_recommendations_created_total",
			Help: "Recommendations created, by genre.",
		}, []string{"genre"}),
		recsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hypeshelf_recommendations_deleted_total",
			Help: "Recommendations deleted, by whether the caller owned them.",
		}, []string{"actor"}),
		staffPickChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hypeshelf_staff_pick_changes_total",
			Help: "Staff pick writes, by desired value.",
		}, []string{"value"}),
		staffPickAnomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hypeshelf_staff_pick_anomalies_total",
			Help: "Times more than one staff pick was found and repaired.",
		}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hypeshelf_users_created_total",
			Help: "Local user records created on first sight.",
		}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hypeshelf_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.recsCreated,
		c.recsDeleted,
		c.staffPickChanges,
		c.staffPickAnomalies,
		c.usersCreated,
		c.breakerState,
	)

	return c
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordRecommendationCreated counts a new recommendation.
func (c *Collector) RecordRecommendationCreated(genre string) {
	c.recsCreated.WithLabelValues(genre).Inc()
}

// RecordRecommendationDeleted counts a deletion; byOwner is false for admin moderation.
func (c *Collector) RecordRecommendationDeleted(byOwner bool) {
	actor := "admin"
	if byOwner {
		actor = "owner"
	}
	c.recsDeleted.WithLabelValues(actor).Inc()
}

// RecordStaffPickChange counts a staff pick write.
func (c *Collector) RecordStaffPickChange(value bool) {
	c.staffPickChanges.WithLabelValues(strconv.FormatBool(value)).Inc()
}

// RecordStaffPickAnomaly counts a detected violation of the single staff pick invariant.
func (c *Collector) RecordStaffPickAnomaly() {
	c.staffPickAnomalies.Inc()
}

// RecordUserCreated counts a user created on first sight.
func (c *Collector) RecordUserCreated() {
	c.usersCreated.Inc()
}

// SetBreakerState publishes a circuit breaker state.
func (c *Collector) SetBreakerState(name string, state float64) {
	c.breakerState.WithLabelValues(name).Set(state)
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
