package llm

import "context"

// Middleware represents a function that wraps an LLMClient with additional behavior.
type Middleware func(next LLMClient) LLMClient

// clientFunc adapts plain functions to the LLMClient interface.
type clientFunc struct {
	complete func(context.Context, CompletionRequest) (CompletionResponse, error)
	model    func() string
}

//nolint:gocritic // CompletionRequest passed by value to match interface
func (f clientFunc) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return f.complete(ctx, req)
}

func (f clientFunc) GetModelName() string {
	return f.model()
}

// WrapClient creates an LLMClient from function implementations. Middleware uses it
// to wrap Complete while delegating GetModelName to next.
func WrapClient(complete func(context.Context, CompletionRequest) (CompletionResponse, error), next LLMClient) LLMClient {
	return clientFunc{complete: complete, model: next.GetModelName}
}

// Chain composes middlewares around base. Earlier middlewares are outermost:
//
//	Chain(client, mw1, mw2) => mw1 -> mw2 -> client
func Chain(base LLMClient, middlewares ...Middleware) LLMClient {
	client := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		client = middlewares[i](client)
	}
	return client
}
