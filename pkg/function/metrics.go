package function

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Invocation metrics exported for every envelope-wrapped function call.
// Labels stay low-cardinality: function name and result status only.
var (
	invocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playbook",
		Subsystem: "function",
		Name:      "invocations_total",
		Help:      "Total function invocations by function name and result status.",
	}, []string{"function", "status"})

	invocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "playbook",
		Subsystem: "function",
		Name:      "invocation_duration_seconds",
		Help:      "Wall-clock function invocation duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"function"})
)

func observeInvocation(name string, status Status, elapsed time.Duration) {
	invocationsTotal.WithLabelValues(name, string(status)).Inc()
	invocationDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}
