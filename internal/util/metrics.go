package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdjustmentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adjustments_created_total",
		Help: "Total number of stock adjustments created",
	})

	AdjustmentsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adjustments_updated_total",
		Help: "Total number of stock adjustments updated",
	})

	AdjustmentsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adjustments_deleted_total",
		Help: "Total number of stock adjustments deleted",
	})

	AdjustmentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adjustments_rejected_total",
		Help: "Total number of rejected stock adjustments",
	}, []string{"reason"})

	LedgerOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_latency_seconds",
		Help:    "Latency of ledger check-and-write operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adjustment_idempotent_replays_total",
		Help: "Total number of adjustment creates answered from an idempotency key",
	})

	ProductsImportedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "products_imported_total",
		Help: "Total number of products processed by imports",
	}, []string{"result"})

	StockLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inventory_stock_level",
		Help: "Current stock per SKU as last observed by the stock monitor",
	}, []string{"sku"})

	LowStockAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_low_stock_alerts_total",
		Help: "Total number of low stock alerts raised",
	}, []string{"sku"})

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
