package metrics

import (
	"context"
	"time"

	"autodev/pkg/agent/llm"
	"autodev/pkg/agent/llmerrors"
	"autodev/pkg/config"
	"autodev/pkg/logx"
	"autodev/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens with tiktoken.
//
//nolint:gocritic // value semantics match llm.LLMClient
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	var promptText string
	for i := range req.Messages {
		promptText += req.Messages[i].Content + "\n"
	}
	return utils.CountTokensSimple(promptText), utils.CountTokensSimple(resp.Content)
}

// Middleware returns a middleware that records latency, token usage, cost and
// error class of every completion.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, stage StageProvider, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}
	if stage == nil {
		stage = func() string { return "" }
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			start := time.Now()
			resp, err := next.Complete(ctx, req)

			obs := Observation{Model: next.GetModelName(), Stage: stage(), Duration: time.Since(start)}
			if err == nil {
				obs.PromptTokens, obs.CompletionTokens = usageExtractor(req, resp)
				obs.Cost = config.CalculateCost(obs.Model, obs.PromptTokens, obs.CompletionTokens)
			} else {
				obs.ErrorType = llmerrors.TypeOf(err).String()
			}
			recorder.ObserveRequest(obs)

			if logger != nil {
				status := statusSuccess
				if err != nil {
					status = statusError
				}
				logger.Info("LLM request: model=%s stage=%s tokens=%d+%d status=%s duration=%dms",
					obs.Model, obs.Stage, obs.PromptTokens, obs.CompletionTokens, status, obs.Duration.Milliseconds())
			}

			return resp, err //nolint:wrapcheck // middleware passes errors through unchanged
		}, next)
	}
}
