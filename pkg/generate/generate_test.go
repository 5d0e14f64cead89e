package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodev/pkg/agent"
	"autodev/pkg/agent/llm"
	"autodev/pkg/agent/llmerrors"
	"autodev/pkg/templates"
)

type fakeClient struct {
	replies []string
	errs    []error
	prompts []string
}

//nolint:gocritic // test double
func (f *fakeClient) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.prompts = append(f.prompts, req.Messages[0].Content)
	n := len(f.prompts) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return llm.CompletionResponse{}, f.errs[n]
	}
	reply := ""
	if n < len(f.replies) {
		reply = f.replies[n]
	}
	return llm.CompletionResponse{Content: reply, StopReason: "end_turn"}, nil
}

func (f *fakeClient) GetModelName() string { return "gpt-4o" }

type report struct {
	position string
	kind     agent.MessageKind
	message  string
}

func newGenerator(t *testing.T, client llm.LLMClient, reports *[]report) *Generator {
	t.Helper()
	renderer, err := templates.NewRenderer()
	require.NoError(t, err)

	var obs agent.Observer = agent.NopObserver()
	if reports != nil {
		obs = agent.ObserverFunc(func(p string, k agent.MessageKind, m string) {
			*reports = append(*reports, report{p, k, m})
		})
	}
	return New(client, renderer, Options{Observer: obs})
}

func TestGenerateReturnsCompletion(t *testing.T) {
	client := &fakeClient{replies: []string{"build a todo api"}}
	var reports []report
	g := newGenerator(t, client, &reports)

	out, err := g.Generate(context.Background(), Task{
		Function:  templates.ConvertUserInputToGoal,
		Input:     "I want todos",
		Position:  "Project Manager",
		Operation: "Defining user requirements...",
	})
	require.NoError(t, err)
	assert.Equal(t, "build a todo api", out)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Function convert_user_input_to_goal:")
	assert.Contains(t, client.prompts[0], "Here is the input to the function: I want todos")

	require.Len(t, reports, 1)
	assert.Equal(t, report{"Project Manager", agent.MessageAICall, "Defining user requirements..."}, reports[0])
}

func TestGenerateRetriesOnceWithSamePrompt(t *testing.T) {
	client := &fakeClient{
		errs:    []error{errors.New("connection reset"), nil},
		replies: []string{"", "second time lucky"},
	}
	g := newGenerator(t, client, nil)

	out, err := g.Generate(context.Background(), Task{Function: templates.PrintSiteURLs, Input: "x"})
	require.NoError(t, err)
	assert.Equal(t, "second time lucky", out)
	require.Len(t, client.prompts, 2)
	assert.Equal(t, client.prompts[0], client.prompts[1])
}

func TestGenerateFailsAfterRetry(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("down"), errors.New("still down")}}
	g := newGenerator(t, client, nil)

	_, err := g.Generate(context.Background(), Task{Function: templates.PrintSiteURLs})
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrGeneration)
	assert.Equal(t, agent.KindGeneration, agent.Kind(err))
	assert.Len(t, client.prompts, 2)
}

func TestGenerateRetriesAuthOnce(t *testing.T) {
	authErr := llmerrors.NewError(llmerrors.ErrorTypeAuth, "invalid key")
	client := &fakeClient{errs: []error{authErr, authErr}}
	g := newGenerator(t, client, nil)

	_, err := g.Generate(context.Background(), Task{Function: templates.PrintSiteURLs})
	assert.ErrorIs(t, err, agent.ErrGeneration)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
	require.Len(t, client.prompts, 2)
	assert.Equal(t, client.prompts[0], client.prompts[1])
}

func TestGenerateRetriesRejectedRequestOnce(t *testing.T) {
	rejected := llmerrors.Classify("openai", errors.New(`POST "https://api.openai.com/v1/chat/completions": 400 Bad Request`))
	require.True(t, llmerrors.Is(rejected, llmerrors.ErrorTypeBadPrompt))
	client := &fakeClient{errs: []error{rejected}, replies: []string{"", `["https://api.example.com"]`}}
	g := newGenerator(t, client, nil)

	out, err := g.Generate(context.Background(), Task{Function: templates.PrintSiteURLs, Input: "weather"})
	require.NoError(t, err)
	assert.Equal(t, `["https://api.example.com"]`, out)
	require.Len(t, client.prompts, 2)
	assert.Equal(t, client.prompts[0], client.prompts[1])
}

func TestGenerateEmptyCompletion(t *testing.T) {
	client := &fakeClient{replies: []string{"   "}}
	g := newGenerator(t, client, nil)

	_, err := g.Generate(context.Background(), Task{Function: templates.PrintSiteURLs})
	assert.ErrorIs(t, err, agent.ErrGeneration)
}

func TestStructuredDecodes(t *testing.T) {
	client := &fakeClient{replies: []string{"```json\n[\"https://a.example\", \"https://b.example\"]\n```"}}
	g := newGenerator(t, client, nil)

	urls, err := Structured[[]string](context.Background(), g, Task{Function: templates.PrintSiteURLs})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, urls)
}

func TestStructuredDecodeFailureIsDistinct(t *testing.T) {
	client := &fakeClient{replies: []string{"sure! here are some urls"}}
	g := newGenerator(t, client, nil)

	_, err := Structured[[]string](context.Background(), g, Task{Function: templates.PrintSiteURLs})
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrDecode)
	assert.NotErrorIs(t, err, agent.ErrGeneration)
	assert.Len(t, client.prompts, 1, "decode failures are not retried")
}

func TestStructuredPropagatesGenerationError(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("a"), errors.New("b")}}
	g := newGenerator(t, client, nil)

	_, err := Structured[map[string]bool](context.Background(), g, Task{Function: templates.PrintProjectScope})
	assert.ErrorIs(t, err, agent.ErrGeneration)
	assert.NotErrorIs(t, err, agent.ErrDecode)
}
