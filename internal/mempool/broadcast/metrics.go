package broadcast

import "github.com/prometheus/client_golang/prometheus"

var (
	batchSentCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "libra",
		Subsystem: "broadcast",
		Name:      "batches_sent_total",
		Help:      "Total number of transaction batches sent, per peer",
	}, []string{"peer"})
	sendFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "libra",
		Subsystem: "broadcast",
		Name:      "send_failures_total",
		Help:      "Total number of failed batch sends, per peer",
	}, []string{"peer"})
	peerBacklogGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "libra",
		Subsystem: "broadcast",
		Name:      "unacked_batches",
		Help:      "Number of sent batches not yet acknowledged, per peer",
	}, []string{"peer"})
)

func init() {
	prometheus.MustRegister(batchSentCounter)
	prometheus.MustRegister(sendFailureCounter)
	prometheus.MustRegister(peerBacklogGauge)
}
