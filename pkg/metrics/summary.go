package metrics

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	llmmetrics "autodev/pkg/agent/middleware/metrics"
)

const (
	llmTokensMetric = llmmetrics.TokensMetric
	llmCostsMetric  = llmmetrics.CostMetric
)

// RunMetrics is the LLM usage accumulated in a registry.
type RunMetrics struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost_usd"`
}

// Summarize totals LLM token usage and cost across all models and stages.
func Summarize(g prometheus.Gatherer) (*RunMetrics, error) {
	byModel, err := SummarizeByModel(g)
	if err != nil {
		return nil, err
	}

	total := &RunMetrics{}
	for _, m := range byModel {
		total.PromptTokens += m.PromptTokens
		total.CompletionTokens += m.CompletionTokens
		total.TotalCost += m.TotalCost
	}
	total.TotalTokens = total.PromptTokens + total.CompletionTokens
	return total, nil
}

// SummarizeByModel breaks LLM usage down by model.
func SummarizeByModel(g prometheus.Gatherer) (map[string]*RunMetrics, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	result := make(map[string]*RunMetrics)
	get := func(model string) *RunMetrics {
		m, ok := result[model]
		if !ok {
			m = &RunMetrics{}
			result[model] = m
		}
		return m
	}

	for _, mf := range families {
		switch mf.GetName() {
		case llmTokensMetric:
			for _, metric := range mf.GetMetric() {
				labels := labelMap(metric)
				m := get(labels["model"])
				value := int64(metric.GetCounter().GetValue())
				switch labels["type"] {
				case "prompt":
					m.PromptTokens += value
				case "completion":
					m.CompletionTokens += value
				}
			}
		case llmCostsMetric:
			for _, metric := range mf.GetMetric() {
				get(labelMap(metric)["model"]).TotalCost += metric.GetCounter().GetValue()
			}
		}
	}

	for _, m := range result {
		m.TotalTokens = m.PromptTokens + m.CompletionTokens
	}
	return result, nil
}

func labelMap(m *dto.Metric) map[string]string {
	labels := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	return labels
}

// Snapshot renders every metric in g in the Prometheus text exposition format,
// sorted by metric name.
func Snapshot(g prometheus.Gatherer) ([]byte, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}
