package agent

import (
	"context"
	"errors"
	"fmt"
)

// Stage failure kinds. Wrap them with %w and inspect with errors.Is.
var (
	// ErrTransport is a network failure or timeout.
	ErrTransport = errors.New("transport error")
	// ErrGeneration means the generation collaborator failed after its retry.
	ErrGeneration = errors.New("generation error")
	// ErrDecode means a structured response did not match the expected schema.
	ErrDecode = errors.New("decode error")
	// ErrBuild is a toolchain build failure; fatal once the repair budget is spent.
	ErrBuild = errors.New("build error")
	// ErrProcess is a failure to spawn or terminate the server process.
	ErrProcess = errors.New("process error")
	// ErrOperatorAbort means the operator declined to run the generated code.
	ErrOperatorAbort = errors.New("operator abort")
)

// State machine errors.
var (
	// ErrInvalidTransition indicates a transition not allowed by the stage's table.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStepLimit indicates a stage loop exceeded MaxStepsPerStage iterations.
	ErrStepLimit = errors.New("stage step limit exceeded")
)

// Kind names reported to operators.
const (
	KindTransport     = "transport"
	KindGeneration    = "generation"
	KindDecode        = "decode"
	KindBuild         = "build"
	KindProcess       = "process"
	KindOperatorAbort = "operator_abort"
	KindCanceled      = "canceled"
	KindInternal      = "internal"
)

//nolint:gochecknoglobals // ordered classification table
var kinds = []struct {
	err  error
	name string
}{
	{ErrOperatorAbort, KindOperatorAbort},
	{ErrDecode, KindDecode},
	{ErrBuild, KindBuild},
	{ErrProcess, KindProcess},
	{ErrGeneration, KindGeneration},
	{ErrTransport, KindTransport},
	{context.Canceled, KindCanceled},
}

// Kind classifies err to its kind name. Errors of no known kind are "internal".
func Kind(err error) string {
	var se *StageError
	if errors.As(err, &se) && se.Kind != "" {
		return se.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return KindInternal
}

// StageError is a fatal stage failure with the stage position and kind attached.
type StageError struct {
	Stage string
	Kind  string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage=%s kind=%s: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError attaches stage and kind to err. Already attributed errors are returned as is.
func NewStageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Kind: Kind(err), Err: err}
}
