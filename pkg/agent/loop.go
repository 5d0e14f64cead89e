package agent

import (
	"context"
	"fmt"

	"autodev/pkg/project"
)

// MaxStepsPerStage bounds the number of state handler invocations in one stage run.
const MaxStepsPerStage = 32

// StateHandler performs the work of one state and returns the next state.
type StateHandler func(ctx context.Context) (State, error)

// Stage is one agent of the pipeline. Execute drives the agent from DISCOVERY to
// FINISHED against doc or returns a fatal error.
type Stage interface {
	Execute(ctx context.Context, doc *project.Document) error
	Identity() *Identity
}

// RunLoop drives sm until it reaches StateFinished. A state without a handler
// transitions straight to StateFinished. Handler errors are returned unchanged;
// exceeding MaxStepsPerStage returns ErrStepLimit.
func RunLoop(ctx context.Context, sm *BaseStateMachine, handlers map[State]StateHandler) error {
	for steps := 0; ; steps++ {
		current := sm.GetCurrentState()
		if current.IsTerminal() {
			return nil
		}
		if steps >= MaxStepsPerStage {
			return fmt.Errorf("%w: %s stuck in %s after %d steps", ErrStepLimit, sm.GetAgentID(), current, steps)
		}

		next := StateFinished
		if handler, ok := handlers[current]; ok {
			var err error
			next, err = handler(ctx)
			if err != nil {
				return err
			}
		}

		if err := sm.TransitionTo(ctx, next, nil); err != nil {
			return err
		}
	}
}
