package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteop_events_total",
		Help: "Protocol events dispatched to chat subscribers",
	}, []string{"type"})

	PortalActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteop_portal_actions_total",
		Help: "Portal actions executed",
	}, []string{"type", "status"})

	A2UIPayloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteop_a2ui_payloads_total",
		Help: "Canonical A2UI messages applied to the surface processor",
	}, []string{"kind"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteop_runs_total",
		Help: "Agent runs by outcome",
	}, []string{"outcome"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteop_http_requests_total",
		Help: "Requests served by the development backend",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "siteop_http_request_duration_seconds",
		Help:    "Development backend request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
