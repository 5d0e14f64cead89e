// Package generate turns prompt functions into model completions.
//
// Every task is rendered from the templates catalog, wrapped as a function printer
// prompt and sent to the model. A failed call is retried once with the identical
// prompt before the error is surfaced as agent.ErrGeneration.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"autodev/pkg/agent"
	"autodev/pkg/agent/llm"
	"autodev/pkg/agent/llmerrors"
	"autodev/pkg/agent/middleware/resilience/retry"
	"autodev/pkg/logx"
	"autodev/pkg/templates"
	"autodev/pkg/utils"
)

// Task is one call to a prompt function.
type Task struct {
	Function templates.Function
	// Input is the function argument appended to the prompt.
	Input string
	// Position is the agent role making the call, used for progress messages.
	Position string
	// Operation describes the call for progress messages.
	Operation string
}

// Options configures a Generator.
type Options struct {
	Observer    agent.Observer
	Data        templates.FunctionData
	MaxTokens   int
	Temperature float32
}

// Completer runs a task and returns the raw completion text.
type Completer interface {
	Generate(ctx context.Context, task Task) (string, error)
}

// Generator runs prompt functions against a model.
type Generator struct {
	client   llm.LLMClient
	renderer *templates.Renderer
	observer agent.Observer
	data     templates.FunctionData
	counter  *utils.TokenCounter
	logger   *logx.Logger

	maxTokens   int
	temperature float32
}

// New wraps client with the single retry policy and returns a Generator.
func New(client llm.LLMClient, renderer *templates.Renderer, opts Options) *Generator {
	logger := logx.NewLogger("generate")

	if opts.Observer == nil {
		opts.Observer = agent.NopObserver()
	}
	if opts.Data.ListenAddr == "" {
		opts.Data = templates.DefaultFunctionData()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = llm.DefaultMaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = llm.TemperatureDeterministic
	}

	counter, err := utils.NewTokenCounter(client.GetModelName())
	if err != nil {
		logger.Warn("token counting falls back to estimates: %v", err)
	}

	return &Generator{
		client:      llm.Chain(client, retry.Middleware(retry.Once, logger)),
		renderer:    renderer,
		observer:    opts.Observer,
		data:        opts.Data,
		counter:     counter,
		logger:      logger,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}
}

// Prompt renders the full text sent to the model for task.
func (g *Generator) Prompt(task Task) (string, error) {
	text, err := g.renderer.Render(task.Function, g.data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", agent.ErrGeneration, err)
	}
	return templates.PrinterPrompt(task.Function, text, task.Input), nil
}

// Generate runs task and returns the raw completion text.
func (g *Generator) Generate(ctx context.Context, task Task) (string, error) {
	prompt, err := g.Prompt(task)
	if err != nil {
		return "", err
	}

	if task.Operation != "" {
		g.observer.Report(task.Position, agent.MessageAICall, task.Operation)
	}

	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage(prompt)})
	req.MaxTokens = g.maxTokens
	req.Temperature = g.temperature

	logx.Debug(ctx, "generate", "%s: prompt %d tokens", task.Function.Name(), g.counter.CountTokens(prompt))

	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		logx.Debug(ctx, "generate", "%s failed for prompt %s", task.Function.Name(), llmerrors.SanitizePrompt(prompt, 400))
		return "", fmt.Errorf("%w: %s: %w", agent.ErrGeneration, task.Function.Name(), err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: %s: empty completion", agent.ErrGeneration, task.Function.Name())
	}

	logx.Debug(ctx, "generate", "%s: completion %d tokens, stop=%s",
		task.Function.Name(), g.counter.CountTokens(resp.Content), resp.StopReason)

	return resp.Content, nil
}

// Structured runs task and decodes the completion as JSON into T.
// A completion that does not decode returns agent.ErrDecode.
func Structured[T any](ctx context.Context, c Completer, task Task) (T, error) {
	var out T

	text, err := c.Generate(ctx, task)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal([]byte(StripCodeFences(text)), &out); err != nil {
		return out, fmt.Errorf("%w: %s: %w", agent.ErrDecode, task.Function.Name(), err)
	}
	return out, nil
}
