// Package ratelimit provides request rate limiting middleware for LLM clients.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"autodev/pkg/agent/llm"
	"autodev/pkg/agent/middleware/metrics"
)

// NewLimiter returns a limiter allowing requestsPerMinute calls with no burst.
// A non-positive rate returns nil, which disables limiting.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// Middleware waits for limiter before each request and records the queue wait.
func Middleware(limiter *rate.Limiter, recorder metrics.Recorder) llm.Middleware {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return func(next llm.LLMClient) llm.LLMClient {
		if limiter == nil {
			return next
		}
		return llm.WrapClient(func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			start := time.Now()
			if err := limiter.Wait(ctx); err != nil {
				return llm.CompletionResponse{}, fmt.Errorf("rate limit wait: %w", err)
			}
			recorder.ObserveQueueWait(next.GetModelName(), time.Since(start))
			return next.Complete(ctx, req)
		}, next)
	}
}
