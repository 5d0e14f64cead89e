package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"autodev/pkg/agent"
)

// AssertStateSequence verifies the visited states of a stage and the
// invariants every sequence must hold: it starts in DISCOVERY and nothing
// follows FINISHED.
func AssertStateSequence(t *testing.T, got []agent.State, want ...agent.State) {
	t.Helper()

	if assert.NotEmpty(t, got, "state sequence is empty") {
		assert.Equal(t, agent.StateDiscovery, got[0], "sequence must start in DISCOVERY")
	}
	for i, s := range got {
		if s.IsTerminal() && i != len(got)-1 {
			t.Errorf("state %s at position %d is followed by %v", s, i, got[i+1:])
		}
	}
	assert.Equal(t, want, got)
}
