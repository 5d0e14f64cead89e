package coder

import (
	"context"
	"fmt"
	"strings"

	"autodev/pkg/agent"
	"autodev/pkg/build"
	"autodev/pkg/console"
	"autodev/pkg/generate"
	"autodev/pkg/project"
	"autodev/pkg/templates"
)

// handleUnitTesting gates execution on the operator, builds the server and
// either hands the compiler output back for a repair or probes the result.
func (d *Driver) handleUnitTesting(ctx context.Context) (agent.State, error) {
	d.report(agent.MessageUnitTest, "Backend Code Unit Testing: Requesting user input")

	ok, err := d.confirmer.Confirm(console.SafetyWarning)
	if err != nil {
		return agent.StateUnitTesting, fmt.Errorf("%w: %w", agent.ErrOperatorAbort, err)
	}
	if !ok {
		return agent.StateUnitTesting, fmt.Errorf("%w: generated code was not approved for execution", agent.ErrOperatorAbort)
	}

	d.report(agent.MessageUnitTest, "Backend Code Unit Testing: building project...")

	d.builds++
	res, err := d.builder.Build(ctx, d.workspace.ServerDir())
	if err != nil {
		return agent.StateUnitTesting, err
	}
	d.history.BuildAttempt(d.builds, res)
	d.metrics.ObserveBuild(res.Success(), res.Duration)

	if !res.Success() {
		return d.buildFailed(res)
	}

	d.bugCount = 0
	d.lastBuildErrors = nil
	d.report(agent.MessageUnitTest, "Backend Code Unit Testing: Test server build successful...")

	if err := d.probeEndpoints(ctx); err != nil {
		return agent.StateUnitTesting, err
	}
	return agent.StateFinished, nil
}

func (d *Driver) buildFailed(res build.Result) (agent.State, error) {
	d.bugCount++
	errs := res.Stderr
	if strings.TrimSpace(errs) == "" {
		errs = res.Stdout
	}
	d.lastBuildErrors = &errs

	d.logger.Warn("build %d failed with exit code %d", d.builds, res.ExitCode)

	if d.bugCount > d.maxRepairs {
		d.report(agent.MessageIssue, "Backend Code Unit Testing: Too many bugs found in code")
		return agent.StateUnitTesting, fmt.Errorf("%w: build still failing after %d repairs (exit code %d)",
			agent.ErrBuild, d.maxRepairs, res.ExitCode)
	}
	return agent.StateWorking, nil
}

// probeEndpoints extracts the REST surface from the built source, keeps the
// probeable routes and runs the server against them.
func (d *Driver) probeEndpoints(ctx context.Context) error {
	source, err := d.workspace.ReadBackendCode()
	if err != nil {
		return fmt.Errorf("failed to read built source: %w", err)
	}

	schema, err := d.ask(ctx, generate.Task{
		Function: templates.PrintRESTEndpoints,
		Input:    "CODE INPUT: " + source,
	})
	if err != nil {
		return err
	}

	routes, err := project.ParseRoutes([]byte(generate.StripCodeFences(schema)))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", agent.ErrDecode, templates.PrintRESTEndpoints.Name(), err)
	}

	checked := project.FilterProbeable(routes)
	d.doc.APIEndpointSchema = checked
	d.logger.Info("%d of %d endpoints are probeable", len(checked), len(routes))

	report, err := d.prober.Run(ctx, checked, schema)
	d.probeReport = report
	d.history.Probe(report)
	if err != nil {
		return err
	}
	if report.Aborted {
		d.logger.Warn("probe stopped after a transport error; %d of %d routes checked", len(report.Probed), len(checked))
	}
	return nil
}

func (d *Driver) report(kind agent.MessageKind, msg string) {
	d.observer.Report(Position, kind, msg)
}
