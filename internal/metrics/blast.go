package metrics

import "github.com/prometheus/client_golang/prometheus"

// Report ingestion and external tool Prometheus metrics.
var (
	ReportsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blastxml",
			Name:      "reports_ingested_total",
			Help:      "Total number of BLAST XML reports ingested",
		},
		[]string{"status"}, // "ok" / "error"
	)

	HitsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blastxml",
			Name:      "hits_ingested_total",
			Help:      "Hits seen during ingestion, split by significance filter outcome",
		},
		[]string{"result"}, // "kept" / "filtered"
	)

	ToolRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blastxml",
			Name:      "tool_runs_total",
			Help:      "Total number of BLAST binary invocations",
		},
		[]string{"program", "status"},
	)

	ToolRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blastxml",
			Name:      "tool_run_duration_seconds",
			Help:      "BLAST binary run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"program"},
	)
)

var blastMetricsRegistered bool

// RegisterBlastMetrics registers report and tool metrics. Must be called once from main.
func RegisterBlastMetrics() {
	if blastMetricsRegistered {
		return
	}
	prometheus.MustRegister(ReportsIngestedTotal)
	prometheus.MustRegister(HitsIngestedTotal)
	prometheus.MustRegister(ToolRunsTotal)
	prometheus.MustRegister(ToolRunDuration)
	blastMetricsRegistered = true
}
