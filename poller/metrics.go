package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latestBlockHeight = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "consensus_visualizer",
		Subsystem: "poller",
		Name:      "latest_block_height",
		Help:      "The latest observed block height per network",
	},
	[]string{"network"},
)

var cachedBlockCount = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "consensus_visualizer",
		Subsystem: "poller",
		Name:      "cached_blocks",
		Help:      "Number of block summaries currently cached per network",
	},
	[]string{"network"},
)

var upstreamPollCount = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "consensus_visualizer",
		Subsystem: "poller",
		Name:      "upstream_polls_total",
		Help:      "Poll cycles that passed the rate gate and contacted upstream",
	},
	[]string{"network"},
)

var heartbeatCount = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "consensus_visualizer",
		Subsystem: "poller",
		Name:      "heartbeats_total",
		Help:      "Poll cycles served from cache without contacting upstream",
	},
	[]string{"network"},
)
