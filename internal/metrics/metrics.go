// Package metrics exposes prometheus counters for scheduling flows.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts store mutations, rollbacks, discarded responses,
// availability outcomes and API traffic. A nil *Metrics is a no-op.
type Metrics struct {
	mutations      *prometheus.CounterVec
	rollbacks      *prometheus.CounterVec
	staleResponses *prometheus.CounterVec
	availability   *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg, or on the default
// registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Optimistic appointment mutations by operation and outcome",
		}, []string{"op", "outcome"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "store",
			Name:      "rollbacks_total",
			Help:      "Optimistic mutations reverted after the remote store declined them",
		}, []string{"op"}),
		staleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because a newer request superseded them",
		}, []string{"kind"}),
		availability: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "availability",
			Name:      "checks_total",
			Help:      "Availability checks by result",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route and status code",
		}, []string{"route", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.mutations, m.rollbacks, m.staleResponses, m.availability, m.httpRequests, m.httpLatency)
	return m
}

// ObserveMutation records a settled mutation. ok is false when it was rolled back.
func (m *Metrics) ObserveMutation(op string, ok bool) {
	if m == nil {
		return
	}
	outcome := "confirmed"
	if !ok {
		outcome = "declined"
		m.rollbacks.WithLabelValues(op).Inc()
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
}

// ObserveStale records a discarded response of the given kind ("list", "availability").
func (m *Metrics) ObserveStale(kind string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(kind).Inc()
}

// ObserveAvailability records the result of an availability check.
func (m *Metrics) ObserveAvailability(result string) {
	if m == nil {
		return
	}
	m.availability.WithLabelValues(result).Inc()
}

// ObserveHTTP records one API request.
func (m *Metrics) ObserveHTTP(route, code string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
	m.httpLatency.WithLabelValues(route).Observe(seconds)
}
