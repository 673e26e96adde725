// Package metrics exposes prometheus instrumentation for the relay:
// request counts, upstream latency, failover events, and token totals.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmrelay_requests_total",
		Help: "Handled requests by route and status code.",
	}, []string{"route", "status"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llmrelay_upstream_latency_seconds",
		Help:    "Wall time of upstream dispatch including failover cycles.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"backend"})

	FailoverEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmrelay_failover_events_total",
		Help: "Failover attempts by cause.",
	}, []string{"cause"})

	TokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmrelay_tokens_total",
		Help: "Tokens processed by direction.",
	}, []string{"direction"})
)

// ObserveRequest records one handled request.
func ObserveRequest(route string, status int) {
	RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObserveUpstream records dispatch latency for the backend that served
// the request.
func ObserveUpstream(backend string, elapsed time.Duration) {
	UpstreamLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// ObserveFailover records one failover event by classified cause.
func ObserveFailover(cause string) {
	FailoverEvents.WithLabelValues(cause).Inc()
}

// ObserveTokens records usage totals extracted from a completed
// response.
func ObserveTokens(input, output int) {
	if input > 0 {
		TokensTotal.WithLabelValues("input").Add(float64(input))
	}

	if output > 0 {
		TokensTotal.WithLabelValues("output").Add(float64(output))
	}
}
