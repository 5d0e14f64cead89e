package agent

// State is the lifecycle state of a stage agent.
type State string

// Agent states. Every stage starts in StateDiscovery; StateFinished is terminal.
const (
	StateDiscovery   State = "DISCOVERY"
	StateWorking     State = "WORKING"
	StateUnitTesting State = "UNIT_TESTING"
	StateFinished    State = "FINISHED"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether no transition may leave s.
func (s State) IsTerminal() bool {
	return s == StateFinished
}

// ValidState reports whether s is one of the known agent states.
func ValidState(s State) bool {
	switch s {
	case StateDiscovery, StateWorking, StateUnitTesting, StateFinished:
		return true
	default:
		return false
	}
}
