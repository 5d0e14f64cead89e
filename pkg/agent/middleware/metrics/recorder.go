// Package metrics records latency, token usage and cost of every model call made by a stage.
package metrics

import "time"

// StageProvider reports which pipeline stage is currently calling the model.
type StageProvider func() string

// Observation describes one finished completion.
type Observation struct {
	Model            string
	Stage            string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	// ErrorType is the llmerrors class of a failed call, empty on success.
	ErrorType string
	Duration  time.Duration
}

// Succeeded reports whether the call returned a completion.
func (o Observation) Succeeded() bool { return o.ErrorType == "" }

// Recorder receives observations from the middleware chain.
type Recorder interface {
	ObserveRequest(obs Observation)
	// ObserveQueueWait records time spent blocked on the rate limiter.
	ObserveQueueWait(model string, wait time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(Observation) {}
func (nopRecorder) ObserveQueueWait(string, time.Duration) {}

// Nop returns a Recorder that discards everything.
func Nop() Recorder { return nopRecorder{} }
