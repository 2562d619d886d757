package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cycle metrics
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpulse_cycles_total",
			Help: "Total number of evaluation cycles",
		},
		[]string{"status"}, // status: complete, rules_unavailable, empty
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockpulse_cycle_duration_seconds",
			Help:    "Wall time of one evaluation cycle",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	RulesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockpulse_rules_loaded",
			Help: "Active rules returned for the identity in the latest cycle",
		},
	)

	// Price feed metrics
	QuoteLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpulse_quote_lookups_total",
			Help: "Total number of quote lookups by outcome",
		},
		[]string{"outcome"}, // outcome: ok, unavailable
	)

	QuoteCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpulse_quote_cache_total",
			Help: "Quote cache lookups by result",
		},
		[]string{"result"}, // result: hit, miss
	)

	// Engine metrics
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpulse_evaluations_total",
			Help: "Total number of rule evaluations",
		},
		[]string{"alert_type", "triggered"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpulse_notifications_total",
			Help: "Notification attempts by channel and outcome",
		},
		[]string{"channel", "outcome"}, // outcome: sent, failed, suppressed, cooldown
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpulse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockpulse_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)
)
