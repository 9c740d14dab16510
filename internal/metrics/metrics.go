// README: Prometheus collectors for upstream calls and planning outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bikeplan_upstream_requests_total",
			Help: "Upstream provider requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bikeplan_upstream_request_duration_seconds",
			Help:    "Upstream provider request latency including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	Plans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bikeplan_plans_total",
			Help: "Planning runs by final state",
		},
		[]string{"outcome"},
	)

	WaypointsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bikeplan_waypoints_dropped_total",
			Help: "Waypoints omitted because the geocoder found no match",
		},
	)

	ForecastsUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bikeplan_forecasts_unavailable_total",
			Help: "Stops whose forecast fell outside the provider horizon or failed",
		},
	)
)
