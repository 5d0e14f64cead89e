// Package coder implements the backend developer stage: generate the server,
// build it, repair it from compiler output and probe it once it builds.
package coder

import (
	"context"
	"errors"
	"time"

	"autodev/pkg/agent"
	"autodev/pkg/agent/llm"
	"autodev/pkg/generate"
	"autodev/pkg/logx"
	"autodev/pkg/metrics"
	"autodev/pkg/probe"
	"autodev/pkg/project"
)

// Deps are the collaborators of a Driver. Observer, Metrics, History and
// Transitions are optional.
type Deps struct {
	Completer   generate.Completer
	Builder     Builder
	Prober      Prober
	Confirmer   Confirmer
	Workspace   Workspace
	Observer    agent.Observer
	Metrics     *metrics.Pipeline
	History     History
	Transitions agent.TransitionObserver
	// MaxRepairs defaults to DefaultMaxRepairs.
	MaxRepairs int
}

// Driver is the build and repair loop.
type Driver struct {
	identity  *agent.Identity
	completer generate.Completer
	builder   Builder
	prober    Prober
	confirmer Confirmer
	workspace Workspace
	observer  agent.Observer
	metrics   *metrics.Pipeline
	history   History
	onChange  agent.TransitionObserver
	logger    *logx.Logger

	maxRepairs int

	sm              *agent.BaseStateMachine
	doc             *project.Document
	bugCount        int
	lastBuildErrors *string
	builds          int
	probeReport     probe.Report
}

var _ agent.Stage = (*Driver)(nil)

// NewDriver returns a backend developer in DISCOVERY.
func NewDriver(deps Deps) (*Driver, error) {
	switch {
	case deps.Completer == nil:
		return nil, errors.New("coder: completer is required")
	case deps.Builder == nil:
		return nil, errors.New("coder: builder is required")
	case deps.Prober == nil:
		return nil, errors.New("coder: prober is required")
	case deps.Confirmer == nil:
		return nil, errors.New("coder: confirmer is required")
	case deps.Workspace == nil:
		return nil, errors.New("coder: workspace is required")
	}
	if deps.Observer == nil {
		deps.Observer = agent.NopObserver()
	}
	if deps.History == nil {
		deps.History = nopHistory{}
	}
	if deps.MaxRepairs <= 0 {
		deps.MaxRepairs = DefaultMaxRepairs
	}

	return &Driver{
		identity:   agent.NewIdentity(Objective, Position),
		completer:  deps.Completer,
		builder:    deps.Builder,
		prober:     deps.Prober,
		confirmer:  deps.Confirmer,
		workspace:  deps.Workspace,
		observer:   deps.Observer,
		metrics:    deps.Metrics,
		history:    deps.History,
		onChange:   deps.Transitions,
		logger:     logx.NewLogger("coder"),
		maxRepairs: deps.MaxRepairs,
	}, nil
}

// Identity returns the backend developer's identity.
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

// BugCount is the number of consecutive failed builds. It is zero after a successful build.
func (d *Driver) BugCount() int { return d.bugCount }

// Builds is the number of build invocations of the last Execute.
func (d *Driver) Builds() int { return d.builds }

// ProbeReport is the result of the last probe run.
func (d *Driver) ProbeReport() probe.Report { return d.probeReport }

// Execute generates, builds, repairs and probes the backend for doc.
func (d *Driver) Execute(ctx context.Context, doc *project.Document) error {
	d.doc = doc
	d.sm = agent.NewBaseStateMachine("coder", Transitions, d.transitioned)
	d.identity.State = agent.StateDiscovery
	d.bugCount = 0
	d.lastBuildErrors = nil
	d.builds = 0
	d.probeReport = probe.Report{}

	start := time.Now()
	defer func() { d.metrics.ObserveStage(Position, time.Since(start)) }()

	err := agent.RunLoop(ctx, d.sm, map[agent.State]agent.StateHandler{
		agent.StateDiscovery:   d.handleDiscovery,
		agent.StateWorking:     d.handleWorking,
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

// ask runs task as the backend developer and keeps the exchange in memory.
func (d *Driver) ask(ctx context.Context, task generate.Task) (string, error) {
	task.Position = Position
	task.Operation = task.Function.Name()

	text, err := d.completer.Generate(ctx, task)
	if err != nil {
		return "", err
	}
	d.identity.Remember(llm.NewUserMessage(task.Input), llm.NewAssistantMessage(text))
	return text, nil
}
