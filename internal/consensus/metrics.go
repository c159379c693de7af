package consensus

import "github.com/prometheus/client_golang/prometheus"

var (
	getBlockDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "libra",
		Subsystem: "consensus",
		Name:      "get_block_request_duration_seconds",
		Help:      "End-to-end latency of block proposal requests",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})
	rejectCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "libra",
		Subsystem: "consensus",
		Name:      "rejected_txs_total",
		Help:      "Total number of transactions rejected by consensus",
	})
)

func init() {
	prometheus.MustRegister(getBlockDuration)
	prometheus.MustRegister(rejectCounter)
}
