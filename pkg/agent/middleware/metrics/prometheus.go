package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names read back by pkg/metrics when a run is summarized.
const (
	RequestsMetric = "autodev_llm_requests_total"
	TokensMetric   = "autodev_llm_tokens_total"
	CostMetric     = "autodev_llm_costs_total"
)

// PrometheusRecorder keeps model call metrics in a Prometheus registry.
type PrometheusRecorder struct {
	requests  *prometheus.CounterVec
	tokens    *prometheus.CounterVec
	cost      *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	queueWait *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the model call metrics with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	f := promauto.With(reg)
	stageLabels := []string{"model", "stage"}

	return &PrometheusRecorder{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: RequestsMetric,
			Help: "Model calls by model, stage and outcome.",
		}, []string{"model", "stage", "status", "error_type"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: TokensMetric,
			Help: "Prompt and completion tokens of successful model calls.",
		}, []string{"model", "stage", "type"}),
		cost: f.NewCounterVec(prometheus.CounterOpts{
			Name: CostMetric,
			Help: "Estimated USD cost of successful model calls.",
		}, stageLabels),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "autodev_llm_request_duration_seconds",
			Help: "Wall time of model calls.",
			// Code generation prompts routinely take over a minute.
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, stageLabels),
		queueWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "autodev_llm_queue_wait_duration_seconds",
			Help:    "Time spent blocked on the rate limiter.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
	}
}

// ObserveRequest implements Recorder. Failed calls count toward requests and latency only.
func (p *PrometheusRecorder) ObserveRequest(obs Observation) {
	status := statusSuccess
	if !obs.Succeeded() {
		status = statusError
	}
	p.requests.WithLabelValues(obs.Model, obs.Stage, status, obs.ErrorType).Inc()
	p.latency.WithLabelValues(obs.Model, obs.Stage).Observe(obs.Duration.Seconds())

	if !obs.Succeeded() {
		return
	}
	p.tokens.WithLabelValues(obs.Model, obs.Stage, "prompt").Add(float64(obs.PromptTokens))
	p.tokens.WithLabelValues(obs.Model, obs.Stage, "completion").Add(float64(obs.CompletionTokens))
	p.cost.WithLabelValues(obs.Model, obs.Stage).Add(obs.Cost)
}

// ObserveQueueWait implements Recorder.
func (p *PrometheusRecorder) ObserveQueueWait(model string, wait time.Duration) {
	p.queueWait.WithLabelValues(model).Observe(wait.Seconds())
}
