package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client-side Prometheus collectors.
type Metrics struct {
	permissionFetches  *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		permissionFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinica_permission_fetch_total",
				Help: "Role menu permission fetches by result.",
			},
			[]string{"result"},
		),
		sessionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinica_session_transitions_total",
				Help: "Session state transitions by target state.",
			},
			[]string{"to"},
		),
		apiRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinica_api_request_duration_seconds",
				Help:    "Clinic API request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
	}
	reg.MustRegister(m.permissionFetches, m.sessionTransitions, m.apiRequestDuration)
	return m
}

// PermissionFetch counts one fetch. A nil receiver is a no-op.
func (m *Metrics) PermissionFetch(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.permissionFetches.WithLabelValues(result).Inc()
}

// SessionTransition counts a move into state to.
func (m *Metrics) SessionTransition(to string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(to).Inc()
}

// ObserveRequest records one API round trip. status 0 means no response.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.apiRequestDuration.WithLabelValues(method, label).Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
