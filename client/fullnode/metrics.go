package fullnode

import (
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var upstreamRequestCount = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "consensus_visualizer",
		Subsystem: "fullnode_client",
		Name:      "request_total",
		Help:      "Total number of fullnode upstream requests",
	},
	[]string{"network", "status"},
)

var upstreamRequestDurationMillis = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "consensus_visualizer",
		Subsystem: "fullnode_client",
		Name:      "request_duration_millis",
		Help:      "Duration of fullnode upstream requests in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2000, 4000},
	},
	[]string{"network", "status"},
)

var upstreamsExhausted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "consensus_visualizer",
		Subsystem: "fullnode_client",
		Name:      "upstreams_exhausted_total",
		Help:      "Number of requests where every configured upstream failed",
	},
	[]string{"network"},
)

func observeUpstreamRequest(network string, status string, t0 time.Time) {
	upstreamRequestCount.WithLabelValues(network, status).Inc()
	upstreamRequestDurationMillis.WithLabelValues(network, status).Observe(float64(time.Since(t0).Milliseconds()))
}

func observeUpstreamRequestCode(network string, statusCode int, t0 time.Time) {
	observeUpstreamRequest(network, strconv.Itoa(statusCode), t0)
}

func observeUpstreamRequestErr(network string, err error, t0 time.Time) {
	observeUpstreamRequest(network, errorToStatus(err), t0)
}

func errorToStatus(err error) string {
	status := "unknown_error"
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			status = "timeout"
		} else {
			status = "connection_refused"
		}
	}
	return status
}
