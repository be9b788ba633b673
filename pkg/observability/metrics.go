// Package observability registers the service's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "report_server",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Report generation runs by outcome.",
	}, []string{"outcome"})
	conversionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "report_server",
		Subsystem: "conversion",
		Name:      "duration_seconds",
		Help:      "Wall time of external conversion jobs, submission to result fetch.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	orphanedArtifacts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "report_server",
		Subsystem: "publish",
		Name:      "orphaned_artifacts_total",
		Help:      "Artifacts stored whose report reference update failed.",
	})
)

func init() {
	prometheus.MustRegister(pipelineRuns, conversionDuration, orphanedArtifacts)
}

// RecordPipelineRun counts one finished run. Outcome is one of
// "success", "validation", "render", "conversion", "publish".
func RecordPipelineRun(outcome string) {
	pipelineRuns.WithLabelValues(outcome).Inc()
}

// RecordConversionDuration observes one conversion attempt, successful
// or not.
func RecordConversionDuration(d time.Duration) {
	conversionDuration.Observe(d.Seconds())
}

// RecordOrphanedArtifact counts a degraded-success publish.
func RecordOrphanedArtifact() {
	orphanedArtifacts.Inc()
}
