package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cases := map[string]error{
		KindBuild:         fmt.Errorf("repair budget exhausted: %w", ErrBuild),
		KindDecode:        fmt.Errorf("%w: bad json", ErrDecode),
		KindOperatorAbort: ErrOperatorAbort,
		KindProcess:       fmt.Errorf("spawn: %w", ErrProcess),
		KindGeneration:    fmt.Errorf("%w: upstream down", ErrGeneration),
		KindTransport:     ErrTransport,
		KindCanceled:      fmt.Errorf("run: %w", context.Canceled),
		KindInternal:      errors.New("other"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Kind(err), err.Error())
	}
}

func TestStageError(t *testing.T) {
	err := NewStageError("Backend Developer", fmt.Errorf("three failed builds: %w", ErrBuild))

	var se *StageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "Backend Developer", se.Stage)
	assert.Equal(t, KindBuild, se.Kind)
	assert.ErrorIs(t, err, ErrBuild)
	assert.Contains(t, err.Error(), "stage=Backend Developer kind=build")

	// Re-wrapping keeps the original attribution.
	again := NewStageError("Orchestrator", fmt.Errorf("pipeline: %w", err))
	assert.True(t, errors.As(again, &se))
	assert.Equal(t, "Backend Developer", se.Stage)
	assert.Equal(t, KindBuild, Kind(again))

	assert.NoError(t, NewStageError("x", nil))
}
