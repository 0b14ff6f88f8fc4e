// Package metrics holds the Prometheus instruments shared by the services.
// Collectors are registered with the default registry so that the /metrics
// route exposes them without further wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SlidesExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slides_expired_total",
			Help: "Number of active slides switched off because their posting window ended.",
		})

	SlideWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slide_write_failures_total",
			Help: "Number of slide persistence writes that failed, by operation.",
		}, []string{"operation"})

	SlideActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slide_actions_total",
			Help: "Number of admin slide actions applied, by action.",
		}, []string{"action"})

	MemberSignupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "member_signups_total",
			Help: "Number of member accounts created through signup.",
		})

	ReviewDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_decisions_total",
			Help: "Number of review applications decided, by status.",
		}, []string{"status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})
)

func init() {
	prometheus.MustRegister(
		SlidesExpiredTotal,
		SlideWriteFailuresTotal,
		SlideActionsTotal,
		MemberSignupsTotal,
		ReviewDecisionsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}
