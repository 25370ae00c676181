package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cod_backend_requests_total",
		Help: "Backend requests issued by the verifier, by action and outcome.",
	}, []string{"action", "outcome"})

	BackendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cod_backend_request_duration_seconds",
		Help:    "Backend request latency by action.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cod_verifications_total",
		Help: "Completed verifications by flow (otp, token).",
	}, []string{"flow"})

	TimerExpirations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cod_timer_expirations_total",
		Help: "Countdown timers that ran to expiry, by kind.",
	}, []string{"kind"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cod_http_requests_total",
		Help: "Ops HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	StaleCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cod_stale_callbacks_total",
		Help: "Late responses dropped by freshness checks, by action.",
	}, []string{"action"})
)
