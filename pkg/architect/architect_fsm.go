package architect

import "autodev/pkg/agent"

// Position and objective of the architect stage.
const (
	Position  = "Solution Architect"
	Objective = "Gathers information and design solutions for website development"
)

// Transitions is the architect state table. FINISHED is reachable from every
// non-terminal state.
//
//	DISCOVERY     -> UNIT_TESTING | FINISHED
//	UNIT_TESTING  -> FINISHED
//
//nolint:gochecknoglobals
var Transitions = agent.TransitionTable{
	agent.StateDiscovery:   {agent.StateUnitTesting, agent.StateFinished},
	agent.StateUnitTesting: {agent.StateFinished},
}
