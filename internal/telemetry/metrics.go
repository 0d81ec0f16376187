/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing for
// the signage services.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heimdall_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration observes request latency by method, endpoint and status.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "heimdall_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heimdall_api_active_connections",
			Help: "Number of in-flight API requests",
		},
	)

	// CatalogRebuildsTotal counts catalog cache refreshes on the stream server.
	CatalogRebuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heimdall_catalog_rebuilds_total",
			Help: "Total number of catalog cache rebuilds",
		},
	)

	// ActiveDisplays reports the number of displays polling within the TTL.
	ActiveDisplays = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heimdall_active_displays",
			Help: "Number of display clients seen within the liveness TTL",
		},
	)

	// PlayerStartsTotal counts player process launches by the controller.
	PlayerStartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heimdall_player_starts_total",
			Help: "Total number of player process launches",
		},
	)

	// ConversionsTotal counts presentation conversions by outcome.
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heimdall_conversions_total",
			Help: "Total number of presentation conversions",
		},
		[]string{"outcome"},
	)

	// CommandsTotal counts operator commands by action.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heimdall_commands_total",
			Help: "Total number of operator commands received",
		},
		[]string{"action"},
	)
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
