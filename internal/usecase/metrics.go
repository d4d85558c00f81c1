package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncDrainsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "khulasync_sync_drains_total",
		Help: "Total number of drain passes executed",
	})

	syncItemsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khulasync_sync_items_synced_total",
			Help: "Total queue items confirmed by the remote API",
		},
		[]string{"entity_type", "operation"},
	)

	syncItemsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khulasync_sync_items_failed_total",
			Help: "Total per-item sync failures",
		},
		[]string{"entity_type"},
	)

	syncItemsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "khulasync_sync_items_dead_lettered_total",
		Help: "Total queue items moved to the dead-letter state",
	})

	syncDrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "khulasync_sync_drain_duration_seconds",
		Help:    "Duration of a single drain pass",
		Buckets: prometheus.DefBuckets,
	})

	paymentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khulasync_payments_processed_total",
			Help: "Total payments processed by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	paymentsStaged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "khulasync_payments_staged_total",
		Help: "Total payments staged while offline",
	})
)
