// Package retry re-sends a failed completion with the identical prompt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autodev/pkg/agent/llm"
	"autodev/pkg/agent/llmerrors"
	"autodev/pkg/logx"
)

// Policy bounds how often a completion is re-sent.
type Policy struct {
	// Attempts counts the first call. Values below 1 mean a single call.
	Attempts int
	// Delay is the pause before each re-send.
	Delay time.Duration
	// Retryable defaults to ShouldRetry.
	Retryable func(error) bool
}

// Once is the generation policy: one more immediate attempt after a failure.
//
//nolint:gochecknoglobals
var Once = Policy{Attempts: 2}

// ShouldRetry retries every failure except cancellation. The llmerrors class is
// only used for logs and metrics.
func ShouldRetry(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

func (p Policy) withDefaults() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Retryable == nil {
		p.Retryable = ShouldRetry
	}
	return p
}

// Middleware applies policy to every completion. When attempts run out the last
// error is returned unchanged.
func Middleware(policy Policy, logger *logx.Logger) llm.Middleware {
	policy = policy.withDefaults()

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			var err error
			for attempt := 1; ; attempt++ {
				var resp llm.CompletionResponse
				resp, err = next.Complete(ctx, req)
				if err == nil {
					return resp, nil
				}
				if attempt >= policy.Attempts || !policy.Retryable(err) {
					break
				}
				if logger != nil {
					logger.Warn("completion failed (attempt %d/%d, class %s), sending again: %v",
						attempt, policy.Attempts, llmerrors.TypeOf(err), err)
				}
				if err := sleep(ctx, policy.Delay); err != nil {
					return llm.CompletionResponse{}, err
				}
			}
			return llm.CompletionResponse{}, err //nolint:wrapcheck // callers classify the provider error
		}, next)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry cancelled: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
