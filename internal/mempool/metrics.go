package mempool

import "github.com/prometheus/client_golang/prometheus"

var (
	poolSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "libra",
		Subsystem: "mempool",
		Name:      "pool_size",
		Help:      "The current number of entries in the pool",
	})
	admissionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "libra",
		Subsystem: "mempool",
		Name:      "admission_total",
		Help:      "Submission outcomes by admission result",
	}, []string{"outcome"})
	evictionCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "libra",
		Subsystem: "mempool",
		Name:      "evictions_total",
		Help:      "Entries evicted to make room at capacity",
	})
	expiredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "libra",
		Subsystem: "mempool",
		Name:      "expired_total",
		Help:      "Entries removed by the expiration sweep",
	})
	getBlockDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "libra",
		Subsystem: "mempool",
		Name:      "get_block_duration_seconds",
		Help:      "The latency of block construction",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
	})
)

func init() {
	prometheus.MustRegister(poolSizeGauge)
	prometheus.MustRegister(admissionCounter)
	prometheus.MustRegister(evictionCounter)
	prometheus.MustRegister(expiredCounter)
	prometheus.MustRegister(getBlockDuration)
}
