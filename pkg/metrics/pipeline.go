// Package metrics records pipeline metrics and summarizes a run from the local registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeExcluded  = "excluded"
	OutcomeWarning   = "warning"
	OutcomeTransport = "transport_error"
)

// Pipeline holds the build, probe and stage metrics of the pipeline.
// A nil *Pipeline discards every observation.
type Pipeline struct {
	buildAttempts *prometheus.CounterVec
	buildDuration prometheus.Histogram
	probeResults  *prometheus.CounterVec
	urlChecks     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
}

// NewPipeline registers the pipeline metrics with reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	factory := promauto.With(reg)
	return &Pipeline{
		buildAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autodev_build_attempts_total",
				Help: "Build invocations of the generated server by result",
			},
			[]string{"result"},
		),
		buildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "autodev_build_duration_seconds",
				Help:    "Duration of build invocations in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		probeResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autodev_probe_results_total",
				Help: "Endpoint probes against the running server by outcome",
			},
			[]string{"outcome"},
		),
		urlChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autodev_url_checks_total",
				Help: "External URL checks by outcome",
			},
			[]string{"outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autodev_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autodev_runs_total",
				Help: "Pipeline runs by final status",
			},
			[]string{"status"},
		),
	}
}

// ObserveBuild records one build invocation.
func (p *Pipeline) ObserveBuild(success bool, d time.Duration) {
	if p == nil {
		return
	}
	result := OutcomeSuccess
	if !success {
		result = OutcomeFailure
	}
	p.buildAttempts.WithLabelValues(result).Inc()
	p.buildDuration.Observe(d.Seconds())
}

// ObserveProbe records one endpoint probe outcome.
func (p *Pipeline) ObserveProbe(outcome string) {
	if p == nil {
		return
	}
	p.probeResults.WithLabelValues(outcome).Inc()
}

// ObserveURLCheck records one external URL check outcome.
func (p *Pipeline) ObserveURLCheck(outcome string) {
	if p == nil {
		return
	}
	p.urlChecks.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage ran.
func (p *Pipeline) ObserveStage(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun records the final status of a run.
func (p *Pipeline) ObserveRun(status string) {
	if p == nil {
		return
	}
	p.runsTotal.WithLabelValues(status).Inc()
}
