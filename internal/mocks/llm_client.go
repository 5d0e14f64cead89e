package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"autodev/pkg/agent/llm"
)

// MockLLMClient implements llm.LLMClient for testing.
//
//nolint:govet // fieldalignment: mock struct layout optimized for readability
type MockLLMClient struct {
	// CompleteFunc is called when Complete is invoked. Override to customize behavior.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)

	// CompleteCalls tracks all calls to Complete for verification.
	CompleteCalls []llm.CompletionRequest

	modelName string
	mu        sync.Mutex
}

// NewMockLLMClient creates a mock that answers every request with "Mock response".
func NewMockLLMClient() *MockLLMClient {
	m := &MockLLMClient{modelName: "gpt-4o"}
	m.RespondWith("Mock response")
	return m
}

// Complete implements llm.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, req)
	fn := m.CompleteFunc
	m.mu.Unlock()
	return fn(ctx, req)
}

// GetModelName implements llm.LLMClient.
func (m *MockLLMClient) GetModelName() string {
	return m.modelName
}

// SetModelName sets the model name returned by GetModelName.
func (m *MockLLMClient) SetModelName(name string) {
	m.modelName = name
}

// OnComplete sets a custom handler for Complete calls.
func (m *MockLLMClient) OnComplete(fn func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = fn
}

// FailCompleteWith configures Complete to return the specified error.
func (m *MockLLMClient) FailCompleteWith(err error) {
	m.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, err
	})
}

// RespondWith configures Complete to return the specified content.
func (m *MockLLMClient) RespondWith(content string) {
	m.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: content, StopReason: "end_turn"}, nil
	})
}

// RespondByFunction answers each prompt with the reply registered for the
// prompt function named on its first line ("Function <name>:"). Prompts for
// unregistered functions fail.
func (m *MockLLMClient) RespondByFunction(replies map[string]string) {
	m.OnComplete(func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
		name := FunctionName(req)
		reply, ok := replies[name]
		if !ok {
			return llm.CompletionResponse{}, fmt.Errorf("mock: no reply for function %q", name)
		}
		return llm.CompletionResponse{Content: reply, StopReason: "end_turn"}, nil
	})
}

// FunctionName returns the prompt function named by the last message of req.
func FunctionName(req llm.CompletionRequest) string {
	if len(req.Messages) == 0 {
		return ""
	}
	first, _, _ := strings.Cut(req.Messages[len(req.Messages)-1].Content, "\n")
	name := strings.TrimPrefix(first, "Function ")
	return strings.TrimSuffix(name, ":")
}

// CalledFunctions returns the prompt function of every Complete call in order.
func (m *MockLLMClient) CalledFunctions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.CompleteCalls))
	for _, req := range m.CompleteCalls {
		names = append(names, FunctionName(req))
	}
	return names
}
