package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ewm"

// Registry holds every metric of the process; /metrics serves it.
var Registry = prometheus.NewRegistry()

// AppInfo is always 1; the build is in the labels.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date", "service"},
)

// HealthCheckStatus is 1 while a readiness check passes or warns, 0 on failure.
var HealthCheckStatus = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_check_status",
		Help:      "Individual readiness check status (0=fail, 1=pass)",
	},
	[]string{"check"},
)

// EventTransitions counts event state changes by actor (owner|admin).
var EventTransitions = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_transitions_total",
		Help:      "Total number of event state transitions",
	},
	[]string{"actor", "from", "to"},
)

// RequestDecisions counts participation request status assignments.
var RequestDecisions = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_decisions_total",
		Help:      "Total number of participation request status assignments",
	},
	[]string{"status", "source"}, // source: create|bulk|cascade|cancel
)

// RuleViolations counts rejected operations by the violated rule's field.
var RuleViolations = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rule_violations_total",
		Help:      "Total number of operations rejected by a business rule",
	},
	[]string{"operation", "field"},
)

// HitsRecorded counts hits handed to the stats delivery path.
var HitsRecorded = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hits_recorded_total",
		Help:      "Total number of stats hits handed off for delivery",
	},
	[]string{"mode", "result"}, // mode: queued|direct, result: success|error
)

// StatsRequestDuration records stats service call latency.
var StatsRequestDuration = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stats_request_duration_seconds",
		Help:      "Stats service call latency in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	},
	[]string{"operation", "result"},
)

var runtimeOnce sync.Once

// Init adds the Go runtime and process collectors and publishes the build.
// Collectors are registered once per process.
func Init(version, commit, buildDate, service string) {
	runtimeOnce.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	AppInfo.WithLabelValues(version, commit, buildDate, service).Set(1)
}
