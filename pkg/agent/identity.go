package agent

import "autodev/pkg/agent/llm"

// Identity describes a stage agent: what it is for, its role name, and the
// conversation it has had with the model. Memory is append-only.
type Identity struct {
	Objective string
	Position  string
	State     State
	Memory    []llm.CompletionMessage
}

// NewIdentity returns an identity in StateDiscovery.
func NewIdentity(objective, position string) *Identity {
	return &Identity{Objective: objective, Position: position, State: StateDiscovery}
}

// Remember appends messages to the agent's memory.
func (i *Identity) Remember(msgs ...llm.CompletionMessage) {
	i.Memory = append(i.Memory, msgs...)
}
