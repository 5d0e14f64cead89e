package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autodev/pkg/logx"
)

// StateTransition represents a transition between states.
type StateTransition struct {
	Agent     string
	FromState State
	ToState   State
	Timestamp time.Time
	Metadata  map[string]any
}

// TransitionTable lists the allowed successor states of each state for one stage.
type TransitionTable map[State][]State

// TransitionObserver is notified after every accepted transition.
type TransitionObserver func(t StateTransition)

// BaseStateMachine tracks a stage's current state and transition history.
type BaseStateMachine struct {
	agentID      string
	currentState State
	transitions  []StateTransition
	table        TransitionTable
	observer     TransitionObserver
	mu           sync.Mutex
	logger       *logx.Logger
}

// NewBaseStateMachine creates a state machine in StateDiscovery governed by table.
func NewBaseStateMachine(agentID string, table TransitionTable, observer TransitionObserver) *BaseStateMachine {
	return &BaseStateMachine{
		agentID:      agentID,
		currentState: StateDiscovery,
		table:        table,
		observer:     observer,
		logger:       logx.NewLogger(agentID),
	}
}

// GetCurrentState returns the current state.
func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.currentState
}

// GetAgentID returns the agent ID.
func (sm *BaseStateMachine) GetAgentID() string {
	return sm.agentID
}

// IsValidTransition reports whether table allows from -> to. Nothing leaves a
// terminal state; every other state may always finish.
func (sm *BaseStateMachine) IsValidTransition(from, to State) bool {
	if from.IsTerminal() || !ValidState(to) {
		return false
	}
	if to == StateFinished {
		return true
	}
	for _, allowed := range sm.table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo moves to newState and records the transition.
func (sm *BaseStateMachine) TransitionTo(ctx context.Context, newState State, metadata map[string]any) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("state transition cancelled: %w", ctx.Err())
	default:
	}

	sm.mu.Lock()
	oldState := sm.currentState
	if !sm.IsValidTransition(oldState, newState) {
		sm.mu.Unlock()
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, oldState, newState)
	}

	transition := StateTransition{
		Agent:     sm.agentID,
		FromState: oldState,
		ToState:   newState,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
	sm.transitions = append(sm.transitions, transition)
	sm.currentState = newState
	observer := sm.observer
	sm.mu.Unlock()

	sm.logger.Debug("State transition: %s → %s", oldState, newState)

	if observer != nil {
		observer(transition)
	}
	return nil
}

// GetTransitions returns the state transition history.
func (sm *BaseStateMachine) GetTransitions() []StateTransition {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return append([]StateTransition{}, sm.transitions...)
}

// States returns the visited state sequence, starting with StateDiscovery.
func (sm *BaseStateMachine) States() []State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	states := []State{StateDiscovery}
	for _, t := range sm.transitions {
		states = append(states, t.ToState)
	}
	return states
}
