package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_rate_limiter_requests_total",
			Help: "Requests allowed by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_rate_limiter_blocked_total",
			Help: "Requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_rate_limiter_errors_total",
			Help: "Redis errors that let a request through unchecked",
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
	prometheus.MustRegister(RLErrors)
}
