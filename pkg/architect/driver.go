// Package architect implements the solution architect stage: it scopes the
// requested backend and keeps only the external URLs that answer 200.
package architect

import (
	"context"
	"errors"
	"time"

	"autodev/pkg/agent"
	"autodev/pkg/agent/llm"
	"autodev/pkg/generate"
	"autodev/pkg/logx"
	"autodev/pkg/metrics"
	"autodev/pkg/project"
)

// URLChecker reports the HTTP status code of a GET request.
type URLChecker interface {
	Status(ctx context.Context, url string) (int, error)
}

// Deps are the collaborators of a Driver. Observer, Metrics and Transitions are optional.
type Deps struct {
	Completer   generate.Completer
	Checker     URLChecker
	Observer    agent.Observer
	Metrics     *metrics.Pipeline
	Transitions agent.TransitionObserver
}

// Driver is the architect stage.
type Driver struct {
	identity  *agent.Identity
	completer generate.Completer
	checker   URLChecker
	observer  agent.Observer
	metrics   *metrics.Pipeline
	onChange  agent.TransitionObserver
	logger    *logx.Logger

	sm  *agent.BaseStateMachine
	doc *project.Document
}

var _ agent.Stage = (*Driver)(nil)

// NewDriver returns an architect in DISCOVERY.
func NewDriver(deps Deps) (*Driver, error) {
	if deps.Completer == nil {
		return nil, errors.New("architect: completer is required")
	}
	if deps.Checker == nil {
		return nil, errors.New("architect: url checker is required")
	}
	if deps.Observer == nil {
		deps.Observer = agent.NopObserver()
	}

	return &Driver{
		identity:  agent.NewIdentity(Objective, Position),
		completer: deps.Completer,
		checker:   deps.Checker,
		observer:  deps.Observer,
		metrics:   deps.Metrics,
		onChange:  deps.Transitions,
		logger:    logx.NewLogger("architect"),
	}, nil
}

// Identity returns the architect's identity. State follows the state machine.
func (d *Driver) Identity() *agent.Identity {
	if d.sm != nil {
		d.identity.State = d.sm.GetCurrentState()
	}
	return d.identity
}

// States returns the states visited by the last Execute.
func (d *Driver) States() []agent.State {
	if d.sm == nil {
		return nil
	}
	return d.sm.States()
}

// Execute scopes doc and, when external URLs are required, lists and checks them.
func (d *Driver) Execute(ctx context.Context, doc *project.Document) error {
	d.doc = doc
	d.sm = agent.NewBaseStateMachine("architect", Transitions, d.transitioned)
	d.identity.State = agent.StateDiscovery

	start := time.Now()
	defer func() { d.metrics.ObserveStage(Position, time.Since(start)) }()

	err := agent.RunLoop(ctx, d.sm, map[agent.State]agent.StateHandler{
		agent.StateDiscovery:   d.handleDiscovery,
		agent.StateUnitTesting: d.handleUnitTesting,
	})
	d.identity.State = d.sm.GetCurrentState()
	return err
}

func (d *Driver) transitioned(t agent.StateTransition) {
	d.identity.State = t.ToState
	d.logger.DebugState("transition", t.ToState.String(), "from "+t.FromState.String())
	if d.onChange != nil {
		d.onChange(t)
	}
}

// decode runs a structured task and keeps the exchange in memory.
func decode[T any](ctx context.Context, d *Driver, task generate.Task) (T, error) {
	task.Position = Position
	task.Operation = task.Function.Name()

	return generate.Structured[T](ctx, recordingCompleter{d}, task)
}

// recordingCompleter stores every input and completion in the identity memory.
type recordingCompleter struct{ d *Driver }

func (r recordingCompleter) Generate(ctx context.Context, task generate.Task) (string, error) {
	text, err := r.d.completer.Generate(ctx, task)
	if err != nil {
		return "", err
	}
	r.d.identity.Remember(llm.NewUserMessage(task.Input), llm.NewAssistantMessage(text))
	return text, nil
}
