package commit

import "github.com/prometheus/client_golang/prometheus"

var committedCounter = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "libra",
	Subsystem: "commit",
	Name:      "committed_txs_total",
	Help:      "Total number of committed transactions pruned from the pool",
})

func init() {
	prometheus.MustRegister(committedCounter)
}
