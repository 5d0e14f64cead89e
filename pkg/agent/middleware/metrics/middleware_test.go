package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodev/pkg/agent/llm"
	"autodev/pkg/agent/llmerrors"
)

type fakeClient struct {
	reply string
	err   error
}

//nolint:gocritic // test double
func (f *fakeClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	if f.err != nil {
		return llm.CompletionResponse{}, f.err
	}
	return llm.CompletionResponse{Content: f.reply}, nil
}

func (f *fakeClient) GetModelName() string { return "gpt-4o" }

type captureRecorder struct{ calls []Observation }

func (c *captureRecorder) ObserveRequest(obs Observation) {
	obs.Duration = 0
	c.calls = append(c.calls, obs)
}

func (c *captureRecorder) ObserveQueueWait(string, time.Duration) {}

func fixedUsage(llm.CompletionRequest, llm.CompletionResponse) (int, int) { return 7, 3 }

func TestMiddlewareRecordsSuccess(t *testing.T) {
	rec := &captureRecorder{}
	client := llm.Chain(&fakeClient{reply: "done"}, Middleware(rec, fixedUsage, func() string { return "architect" }, nil))

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("hi")}))
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)

	require.Len(t, rec.calls, 1)
	assert.True(t, rec.calls[0].Succeeded())
	assert.Equal(t, Observation{
		Model:            "gpt-4o",
		Stage:            "architect",
		PromptTokens:     7,
		CompletionTokens: 3,
		Cost:             rec.calls[0].Cost,
	}, rec.calls[0])
}

func TestMiddlewareRecordsErrorType(t *testing.T) {
	rec := &captureRecorder{}
	boom := llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "slow down")
	client := llm.Chain(&fakeClient{err: boom}, Middleware(rec, fixedUsage, nil, nil))

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	require.True(t, errors.Is(err, boom))
	require.Len(t, rec.calls, 1)
	assert.False(t, rec.calls[0].Succeeded())
	assert.Equal(t, "rate_limit", rec.calls[0].ErrorType)
	assert.Zero(t, rec.calls[0].PromptTokens)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveRequest(Observation{Model: "gpt-4o", Stage: "coder", PromptTokens: 100, CompletionTokens: 50, Cost: 0.01, Duration: time.Second})
	rec.ObserveRequest(Observation{Model: "gpt-4o", Stage: "coder", ErrorType: "auth", Duration: time.Millisecond})

	expected := `
# HELP autodev_llm_requests_total Model calls by model, stage and outcome.
# TYPE autodev_llm_requests_total counter
autodev_llm_requests_total{error_type="",model="gpt-4o",stage="coder",status="success"} 1
autodev_llm_requests_total{error_type="auth",model="gpt-4o",stage="coder",status="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), RequestsMetric))
	assert.Equal(t, 2, testutil.CollectAndCount(rec.tokens))
}
