package coder

import (
	"context"

	"autodev/pkg/build"
	"autodev/pkg/probe"
	"autodev/pkg/project"
)

// Builder compiles the generated server.
type Builder interface {
	// Build runs the build command in dir. A non-zero exit is reported through
	// Result, not as an error.
	Build(ctx context.Context, dir string) (build.Result, error)
}

// Prober runs the built server and checks the retained routes. schema is the
// unfiltered endpoint text that gets persisted.
type Prober interface {
	Run(ctx context.Context, routes []project.RouteDescriptor, schema string) (probe.Report, error)
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Workspace holds the generated server source on disk.
type Workspace interface {
	ServerDir() string
	CodeTemplate() (string, error)
	SaveBackendCode(code string) error
	ReadBackendCode() (string, error)
}

// History records build attempts and probe results of the run.
type History interface {
	BuildAttempt(attempt int, res build.Result)
	Probe(report probe.Report)
}

type nopHistory struct{}

func (nopHistory) BuildAttempt(int, build.Result) {}
func (nopHistory) Probe(probe.Report)             {}
