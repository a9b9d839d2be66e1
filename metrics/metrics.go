// Package metrics declares the storefront's Prometheus collectors, served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendRequestDuration times calls to the REST backend.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_backend_request_duration_seconds",
			Help:    "Backend API call latency",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "outcome"},
	)

	// BreakerState is 0=closed, 1=half-open, 2=open, following gobreaker.State.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_circuit_breaker_state",
			Help: "Backend circuit breaker state",
		},
		[]string{"name"},
	)

	CheckoutOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_outcomes_total",
			Help: "Checkout attempts by stage and result",
		},
		[]string{"stage", "result"},
	)

	ProxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_proxy_requests_total",
			Help: "Requests forwarded to the backend by /api",
		},
		[]string{"method", "status"},
	)

	CartsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_carts_active",
			Help: "Carts held in memory",
		},
	)
)
