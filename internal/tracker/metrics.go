package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_tracker_polls_total",
			Help: "Order poll ticks by scope and result.",
		},
		[]string{"scope", "result"},
	)

	activeTrackers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_tracker_active",
			Help: "Number of running per-user trackers.",
		},
	)
)
