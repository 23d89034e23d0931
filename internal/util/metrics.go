package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_transactions_created_total",
		Help: "Total number of transactions created at checkout",
	})

	TransactionsStatusChangedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_transactions_status_changed_total",
		Help: "Total number of admin status transitions",
	}, []string{"to"})

	CheckoutFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_checkout_latency_seconds",
		Help:    "Latency of checkout operations",
		Buckets: prometheus.DefBuckets,
	})

	CheckoutAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_checkout_amount_vnd",
		Help:    "Total amount of created transactions",
		Buckets: prometheus.ExponentialBuckets(100000, 2, 12),
	})

	CatalogQueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_query_errors_total",
		Help: "Catalog queries that degraded to an empty result",
	}, []string{"query"})

	EnrichmentLookupErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_enrichment_lookup_errors_total",
		Help: "Batched enrichment lookups that fell back to defaults",
	}, []string{"lookup"})

	CartOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_operations_total",
		Help: "Total number of cart mutations",
	}, []string{"op"})

	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cache_requests_total",
		Help: "Cache lookups by cache name and result",
	}, []string{"cache", "result"})

	ImageUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_image_uploads_total",
		Help: "Product image uploads by outcome",
	}, []string{"outcome"})

	FeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_admin_feed_clients",
		Help: "Number of connected admin feed websocket clients",
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_events_published_total",
		Help: "Events published to the store events topic",
	}, []string{"event_type", "outcome"})

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_events_consumed_total",
		Help: "Events consumed from the store events topic",
	}, []string{"worker", "event_type"})

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
