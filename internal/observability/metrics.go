package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the storefront's Prometheus collectors. It implements the gateway call
// observer and the effect recorder.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	gatewayCalls *prometheus.CounterVec
	gatewayTime  *prometheus.HistogramVec
	effects      *prometheus.CounterVec
	viewers      prometheus.Gauge
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status"}),
		gatewayCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_gateway_calls_total",
			Help: "Commerce API calls by operation and outcome",
		}, []string{"op", "outcome"}),
		gatewayTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_gateway_call_duration_seconds",
			Help:    "Commerce API call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		effects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_effects_total",
			Help: "Controller effects performed by kind and outcome",
		}, []string{"kind", "outcome"}),
		viewers: f.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_viewers",
			Help: "Live viewer sessions",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveGatewayCall records a commerce API call.
func (m *Metrics) ObserveGatewayCall(op string, elapsed time.Duration, err error) {
	m.gatewayCalls.WithLabelValues(op, outcome(err)).Inc()
	m.gatewayTime.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveEffect records a performed effect.
func (m *Metrics) ObserveEffect(kind string, err error) {
	m.effects.WithLabelValues(kind, outcome(err)).Inc()
}

// SetViewers reports the number of live viewers.
func (m *Metrics) SetViewers(n int) {
	m.viewers.Set(float64(n))
}

func (m *Metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
