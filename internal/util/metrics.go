package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Total number of orders submitted, by shop type",
	}, []string{"shop_type"})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of order submissions rejected",
	}, []string{"reason"})

	OrderSubmitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_submit_latency_seconds",
		Help:    "Latency of the order submission write path",
		Buckets: prometheus.DefBuckets,
	})

	RelayConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_deliveries_confirmed_total",
		Help: "Total relay submissions acknowledged by the endpoint",
	})

	RelayPresumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_deliveries_presumed_total",
		Help: "Total relay submissions resolved as presumed success on timeout",
	})

	RelayFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_deliveries_failed_total",
		Help: "Total relay submissions refused by the transport",
	})

	ProcurementSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "procurement_sessions_created_total",
		Help: "Total procurement sessions created",
	})

	ProcurementOrdersSummarized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "procurement_orders_summarized_total",
		Help: "Total orders claimed by procurement sessions",
	})

	DashboardLoadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dashboard_load_latency_seconds",
		Help:    "Latency of admin dashboard aggregation",
		Buckets: prometheus.DefBuckets,
	})

	DashboardPartialLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_partial_loads_total",
		Help: "Dashboard loads that skipped at least one unreadable shop",
	})

	CatalogRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_refresh_total",
		Help: "Catalog loads by outcome (hit, refresh, error)",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
