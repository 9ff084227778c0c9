package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "paylink"

// Metrics holds the service's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	linksIssued         prom.Counter
	signatureRejections prom.Counter
	resolutions         *prom.CounterVec
	httpRequests        *prom.CounterVec
	httpDuration        *prom.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prom.Registerer) *Metrics {
	m := &Metrics{
		linksIssued: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "links_issued_total",
			Help:      "Masked links minted and stored.",
		}),
		signatureRejections: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "signature_rejections_total",
			Help:      "Link creation requests rejected for a bad signature.",
		}),
		resolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "link_resolutions_total",
			Help:      "Link visits by outcome and client category.",
		}, []string{"outcome", "client"}),
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.linksIssued, m.signatureRejections, m.resolutions, m.httpRequests, m.httpDuration)
	return m
}

func (m *Metrics) LinkIssued() {
	if m == nil {
		return
	}
	m.linksIssued.Inc()
}

func (m *Metrics) SignatureRejected() {
	if m == nil {
		return
	}
	m.signatureRejections.Inc()
}

// LinkResolved records a visit; client is empty when the link did not resolve.
func (m *Metrics) LinkResolved(outcome, client string) {
	if m == nil {
		return
	}
	if client == "" {
		client = "none"
	}
	m.resolutions.WithLabelValues(outcome, client).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
