package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	OrdersCreated   prometheus.Counter
	OrdersPaid      prometheus.Counter
	OrdersCancelled prometheus.Counter

	ReconcileAttempts *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderengine",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orderengine",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orderengine",
			Name:      "orders_created_total",
			Help:      "Orders successfully created (stock reserved).",
		}),
		OrdersPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orderengine",
			Name:      "orders_paid_total",
			Help:      "Orders that passed payment verification.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orderengine",
			Name:      "orders_cancelled_total",
			Help:      "Orders cancelled with stock released.",
		}),
		ReconcileAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderengine",
			Name:      "payment_reconcile_attempts_total",
			Help:      "Retries of the gateway order-creation step.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPLatency,
		m.OrdersCreated,
		m.OrdersPaid,
		m.OrdersCancelled,
		m.ReconcileAttempts,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
