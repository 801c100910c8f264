package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var streamClients = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "consensus_visualizer",
		Subsystem: "stream",
		Name:      "connected_clients",
		Help:      "Number of currently connected stream clients per network",
	},
	[]string{"network"},
)

var droppedSubscribers = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "consensus_visualizer",
		Subsystem: "stream",
		Name:      "dropped_subscribers_total",
		Help:      "Stream subscribers evicted because they fell too far behind",
	},
	[]string{"network"},
)
