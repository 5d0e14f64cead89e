package llm

import (
	"context"
	"testing"
)

type staticClient struct{ reply string }

//nolint:gocritic // test double
func (s staticClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	return CompletionResponse{Content: s.reply}, nil
}

func (s staticClient) GetModelName() string { return "static" }

func tag(label string, order *[]string) Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			*order = append(*order, label)
			return next.Complete(ctx, req)
		}, next)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	client := Chain(staticClient{reply: "ok"}, tag("outer", &order), tag("inner", &order))

	resp, err := client.Complete(context.Background(), NewCompletionRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("expected ok, got %q", resp.Content)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("unexpected middleware order: %v", order)
	}
	if client.GetModelName() != "static" {
		t.Errorf("model name not delegated: %s", client.GetModelName())
	}
}
