package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	engineOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_engine_operations_total",
			Help: "Total number of engine operations by collection, action and outcome",
		},
		[]string{"collection", "action", "outcome"},
	)

	engineGuardRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_engine_guard_rejections_total",
			Help: "Mutations rejected because the same operation was already in flight",
		},
		[]string{"collection", "action"},
	)

	engineCollectionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_engine_collection_size",
			Help: "Current number of items held locally per collection",
		},
		[]string{"collection"},
	)
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

func recordOperation(collection, action, outcome string) {
	engineOperationsTotal.WithLabelValues(collection, action, outcome).Inc()
}

func recordRejection(collection, action string) {
	engineGuardRejections.WithLabelValues(collection, action).Inc()
}

func recordSize(collection string, n int) {
	engineCollectionSize.WithLabelValues(collection).Set(float64(n))
}
