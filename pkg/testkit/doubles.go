// Package testkit provides test doubles for the pipeline's collaborators.
package testkit

import (
	"context"
	"fmt"
	"sync"

	"autodev/pkg/agent"
	"autodev/pkg/generate"
	"autodev/pkg/templates"
)

// Reply is a scripted answer of ScriptedCompleter.
type Reply struct {
	Text string
	Err  error
}

// ScriptedCompleter answers generation tasks from per-function queues.
// The last reply of a queue repeats once the queue is drained.
type ScriptedCompleter struct {
	mu      sync.Mutex
	replies map[templates.Function][]Reply
	served  map[templates.Function]int
	Tasks   []generate.Task
}

// NewScriptedCompleter returns an empty ScriptedCompleter.
func NewScriptedCompleter() *ScriptedCompleter {
	return &ScriptedCompleter{
		replies: make(map[templates.Function][]Reply),
		served:  make(map[templates.Function]int),
	}
}

// On queues text replies for fn and returns the completer for chaining.
func (s *ScriptedCompleter) On(fn templates.Function, texts ...string) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range texts {
		s.replies[fn] = append(s.replies[fn], Reply{Text: t})
	}
	return s
}

// Fail queues an error reply for fn.
func (s *ScriptedCompleter) Fail(fn templates.Function, err error) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[fn] = append(s.replies[fn], Reply{Err: err})
	return s
}

// Generate implements generate.Completer.
func (s *ScriptedCompleter) Generate(_ context.Context, task generate.Task) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Tasks = append(s.Tasks, task)
	queue := s.replies[task.Function]
	if len(queue) == 0 {
		return "", fmt.Errorf("%w: no scripted reply for %s", agent.ErrGeneration, task.Function.Name())
	}

	idx := s.served[task.Function]
	if idx >= len(queue) {
		idx = len(queue) - 1
	}
	s.served[task.Function]++

	reply := queue[idx]
	return reply.Text, reply.Err
}

// Calls returns how many tasks were run for fn.
func (s *ScriptedCompleter) Calls(fn templates.Function) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.Tasks {
		if t.Function == fn {
			n++
		}
	}
	return n
}

// Message is one report received by RecordingObserver.
type Message struct {
	Position string
	Kind     agent.MessageKind
	Text     string
}

// RecordingObserver keeps every reported message.
type RecordingObserver struct {
	mu       sync.Mutex
	Messages []Message
}

// Report implements agent.Observer.
func (o *RecordingObserver) Report(position string, kind agent.MessageKind, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Messages = append(o.Messages, Message{Position: position, Kind: kind, Text: text})
}

// Texts returns the text of every message of kind.
func (o *RecordingObserver) Texts(kind agent.MessageKind) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, m := range o.Messages {
		if m.Kind == kind {
			out = append(out, m.Text)
		}
	}
	return out
}

// Confirmer answers every confirmation with Answer and counts the questions.
type Confirmer struct {
	Answer bool
	Err    error
	Asked  int
}

// Confirm implements the operator gate.
func (c *Confirmer) Confirm(string) (bool, error) {
	c.Asked++
	return c.Answer, c.Err
}
