package supervisor

import "github.com/prometheus/client_golang/prometheus"

var (
	spawnsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "visiond",
		Subsystem: "supervisor",
		Name:      "spawns_total",
		Help:      "Server processes spawned",
	})

	stopsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "visiond",
		Subsystem: "supervisor",
		Name:      "stops_total",
		Help:      "Server processes stopped",
	})

	idleReapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "visiond",
		Subsystem: "supervisor",
		Name:      "idle_reaps_total",
		Help:      "Automatic shutdowns triggered by the idle reaper",
	})

	inferDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "visiond",
		Subsystem: "supervisor",
		Name:      "infer_duration_seconds",
		Help:      "End-to-end inference request duration",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(spawnsTotal, stopsTotal, idleReapsTotal, inferDuration)
}
