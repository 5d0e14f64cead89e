// Package orchestrator turns a user request into a project document and runs
// the pipeline stages against it in order.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"autodev/pkg/agent"
	"autodev/pkg/agent/llm"
	"autodev/pkg/generate"
	"autodev/pkg/logx"
	"autodev/pkg/metrics"
	"autodev/pkg/persistence"
	"autodev/pkg/project"
	"autodev/pkg/templates"
)

// Position and objective of the managing agent.
const (
	Position  = "Project Manager"
	Objective = "Manage agents who are building an excellent website for the user"
)

// StageBuilder creates the stages of one run. Every stage reports its state
// changes and build history to rec.
type StageBuilder interface {
	Stages(rec *persistence.Recorder) ([]agent.Stage, error)
}

// StageBuilderFunc adapts a function to StageBuilder.
type StageBuilderFunc func(rec *persistence.Recorder) ([]agent.Stage, error)

// Stages calls f.
func (f StageBuilderFunc) Stages(rec *persistence.Recorder) ([]agent.Stage, error) { return f(rec) }

// ArtifactStore persists the end-of-run artifacts.
type ArtifactStore interface {
	SaveDocument(doc *project.Document) error
	SaveMetrics(snapshot []byte) error
}

// Deps are the collaborators of an Orchestrator. History, Gatherer, Metrics,
// Observer and OnStage are optional.
type Deps struct {
	Completer generate.Completer
	Stages    StageBuilder
	Artifacts ArtifactStore
	History   *persistence.DatabaseOperations
	Gatherer  prometheus.Gatherer
	Metrics   *metrics.Pipeline
	Observer  agent.Observer
	// OnStage is told which position is running, for labelling model calls.
	OnStage func(position string)
	// Model is recorded with the run.
	Model string
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Document *project.Document
	Err      error
}

// Orchestrator runs the pipeline for one request at a time.
type Orchestrator struct {
	deps     Deps
	identity *agent.Identity
	logger   *logx.Logger
}

// New returns an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Completer == nil:
		return nil, errors.New("orchestrator: completer is required")
	case deps.Stages == nil:
		return nil, errors.New("orchestrator: stage builder is required")
	case deps.Artifacts == nil:
		return nil, errors.New("orchestrator: artifact store is required")
	}
	if deps.Observer == nil {
		deps.Observer = agent.NopObserver()
	}
	if deps.OnStage == nil {
		deps.OnStage = func(string) {}
	}
	return &Orchestrator{
		deps:     deps,
		identity: agent.NewIdentity(Objective, Position),
		logger:   logx.NewLogger("orchestrator"),
	}, nil
}

// Identity returns the managing agent's identity.
func (o *Orchestrator) Identity() *agent.Identity {
	return o.identity
}

// Run converts request into a project description and runs every stage. The
// first fatal error stops the pipeline and is returned as an *agent.StageError.
// The run is recorded whether it succeeds or not.
func (o *Orchestrator) Run(ctx context.Context, request string) *Result {
	res := &Result{RunID: persistence.GenerateRunID()}
	ctx = logx.WithAgent(ctx, res.RunID)

	var rec *persistence.Recorder
	if o.deps.History != nil {
		err := o.deps.History.CreateRun(&persistence.Run{
			ID:      res.RunID,
			Request: request,
			Model:   o.deps.Model,
		})
		if err != nil {
			o.logger.Warn("run history disabled for %s: %v", res.RunID, err)
		} else {
			rec = persistence.NewRecorder(o.deps.History, res.RunID)
		}
	}

	o.logger.Info("run %s started", res.RunID)
	res.Document, res.Err = o.run(ctx, request, rec)
	o.finish(res, rec != nil)
	return res
}

func (o *Orchestrator) run(ctx context.Context, request string, rec *persistence.Recorder) (*project.Document, error) {
	description, err := o.goal(ctx, request)
	if err != nil {
		return nil, o.fail(Position, err)
	}
	doc := project.New(description)

	stages, err := o.deps.Stages.Stages(rec)
	if err != nil {
		return doc, o.fail(Position, err)
	}

	for _, stage := range stages {
		position := stage.Identity().Position
		o.deps.OnStage(position)
		o.logger.Info("stage %s: %s", position, stage.Identity().Objective)

		if err := stage.Execute(ctx, doc); err != nil {
			return doc, o.fail(position, err)
		}
	}
	o.deps.OnStage("")
	return doc, nil
}

// goal runs the managing prompt that turns the raw request into a project description.
func (o *Orchestrator) goal(ctx context.Context, request string) (string, error) {
	o.deps.OnStage(Position)

	task := generate.Task{
		Function:  templates.ConvertUserInputToGoal,
		Input:     request,
		Position:  Position,
		Operation: templates.ConvertUserInputToGoal.Name(),
	}
	text, err := o.deps.Completer.Generate(ctx, task)
	if err != nil {
		return "", err
	}
	o.identity.Remember(llm.NewUserMessage(request), llm.NewAssistantMessage(text))

	description := strings.TrimSpace(generate.StripCodeFences(text))
	if description == "" {
		return "", fmt.Errorf("%w: empty project description", agent.ErrGeneration)
	}
	return description, nil
}

func (o *Orchestrator) fail(position string, err error) error {
	err = agent.NewStageError(position, err)
	var se *agent.StageError
	if errors.As(err, &se) {
		o.deps.Observer.Report(se.Stage, agent.MessageIssue, fmt.Sprintf("stage=%s kind=%s: %v", se.Stage, se.Kind, se.Err))
	}
	return err
}

// finish writes the document and metrics artifacts and closes the run record.
func (o *Orchestrator) finish(res *Result, recorded bool) {
	status := persistence.RunStatusSucceeded
	if res.Err != nil {
		status = persistence.RunStatusFailed
	}
	o.deps.Metrics.ObserveRun(status)

	outcome := persistence.RunOutcome{Status: status}
	if res.Document != nil {
		outcome.Description = res.Document.ProjectDescription
		outcome.DocumentJSON = res.Document.JSON()
		if err := o.deps.Artifacts.SaveDocument(res.Document); err != nil {
			o.logger.Warn("Failed to save project document: %v", err)
		}
	}

	var se *agent.StageError
	if errors.As(res.Err, &se) {
		outcome.ErrorStage = se.Stage
		outcome.ErrorKind = se.Kind
		outcome.Error = se.Err.Error()
	}

	if o.deps.Gatherer != nil {
		if summary, err := metrics.Summarize(o.deps.Gatherer); err == nil {
			outcome.PromptTokens = summary.PromptTokens
			outcome.CompletionTokens = summary.CompletionTokens
			outcome.CostUSD = summary.TotalCost
			o.logger.Info("run %s used %d tokens ($%.4f)", res.RunID, summary.TotalTokens, summary.TotalCost)
		} else {
			o.logger.Warn("Failed to summarize metrics: %v", err)
		}

		if snapshot, err := metrics.Snapshot(o.deps.Gatherer); err == nil {
			if err := o.deps.Artifacts.SaveMetrics(snapshot); err != nil {
				o.logger.Warn("Failed to save metrics snapshot: %v", err)
			}
		} else {
			o.logger.Warn("Failed to snapshot metrics: %v", err)
		}
	}

	if recorded {
		if err := o.deps.History.FinishRun(res.RunID, outcome); err != nil {
			o.logger.Warn("Failed to finish run record %s: %v", res.RunID, err)
		}
	}

	o.logger.Info("run %s %s", res.RunID, status)
}
