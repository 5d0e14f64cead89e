package coder

import "autodev/pkg/agent"

// Position and objective of the backend developer stage.
const (
	Position  = "Backend Developer"
	Objective = "Develops backend code for webserver and json database"
)

// DefaultMaxRepairs is the number of failed builds that are handed back for a fix.
// The build after the last repair is final.
const DefaultMaxRepairs = 2

// Transitions is the backend developer state table.
//
//	DISCOVERY     -> WORKING
//	WORKING       -> UNIT_TESTING
//	UNIT_TESTING  -> WORKING (build failed, repairs left) | FINISHED
//
//nolint:gochecknoglobals
var Transitions = agent.TransitionTable{
	agent.StateDiscovery:   {agent.StateWorking},
	agent.StateWorking:     {agent.StateUnitTesting},
	agent.StateUnitTesting: {agent.StateWorking, agent.StateFinished},
}
