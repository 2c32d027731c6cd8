package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dev-tahsin7/LMS-TestApp/pkg/httpclient"
)

const (
	refreshSucceeded = "success"
	refreshFailed    = "failure"
	refreshSkipped   = "no_refresh_token"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_api_requests_total",
			Help: "Total number of LMS API calls by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lms_api_request_duration_seconds",
			Help:    "LMS API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	tokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_token_refresh_total",
			Help: "Token refresh attempts triggered by a 401, by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(apiRequestsTotal, apiRequestDuration, tokenRefreshTotal)
}

func observeRequest(ep endpoint, status int, err error, elapsed time.Duration) {
	apiRequestsTotal.WithLabelValues(ep.name, ep.method, statusLabel(status, err)).Inc()
	apiRequestDuration.WithLabelValues(ep.name, ep.method).Observe(elapsed.Seconds())
}

// statusLabel is the response status, or a coarse failure class when no
// response arrived.
func statusLabel(status int, err error) string {
	if status != 0 {
		return strconv.Itoa(status)
	}
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return "circuit_open"
	default:
		return "transport_error"
	}
}
