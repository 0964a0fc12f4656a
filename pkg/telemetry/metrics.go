package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus primitives for the inbound HTTP surface.
type Metrics struct {
	apiRequests       *prometheus.CounterVec
	apiDuration       *prometheus.HistogramVec
	webhookDeliveries *prometheus.CounterVec
	webhookDuration   *prometheus.HistogramVec
}

// NewMetrics registers the HTTP metrics with reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "givebridge_http_requests_total",
		Help: "Counts HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "givebridge_http_request_duration_seconds",
		Help:    "HTTP request latency per method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	webhookDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "givebridge_webhook_deliveries_total",
		Help: "Inbound webhook deliveries by provider and response status.",
	}, []string{"provider", "status"})

	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "givebridge_webhook_delivery_duration_seconds",
		Help:    "Time spent handling an inbound webhook delivery.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	reg.MustRegister(
		apiRequests,
		apiDuration,
		webhookDeliveries,
		webhookDuration,
	)

	return &Metrics{
		apiRequests:       apiRequests,
		apiDuration:       apiDuration,
		webhookDeliveries: webhookDeliveries,
		webhookDuration:   webhookDuration,
	}
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	methodLabel := sanitizeLabel(method)
	routeLabel := sanitizeLabel(route)
	m.apiRequests.WithLabelValues(methodLabel, routeLabel, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(methodLabel, routeLabel).Observe(duration.Seconds())
}

// RecordWebhookDelivery records the response given to one delivery.
func (m *Metrics) RecordWebhookDelivery(provider string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	providerLabel := sanitizeLabel(provider)
	m.webhookDeliveries.WithLabelValues(providerLabel, strconv.Itoa(status)).Inc()
	m.webhookDuration.WithLabelValues(providerLabel).Observe(duration.Seconds())
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
