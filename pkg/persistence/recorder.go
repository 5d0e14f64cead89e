package persistence

import (
	"autodev/pkg/agent"
	"autodev/pkg/build"
	"autodev/pkg/logx"
	"autodev/pkg/probe"
)

// Recorder writes the history of one run. History is best effort: write
// failures are logged and never interrupt the pipeline. A nil *Recorder
// discards everything.
type Recorder struct {
	ops    *DatabaseOperations
	runID  string
	logger *logx.Logger
}

// NewRecorder returns a Recorder for runID.
func NewRecorder(ops *DatabaseOperations, runID string) *Recorder {
	return &Recorder{ops: ops, runID: runID, logger: logx.NewLogger("persistence")}
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// Transition records a stage state change. It satisfies agent.TransitionObserver.
func (r *Recorder) Transition(t agent.StateTransition) {
	if r == nil {
		return
	}
	err := r.ops.RecordTransition(&Transition{
		RunID:     r.runID,
		Agent:     t.Agent,
		FromState: string(t.FromState),
		ToState:   string(t.ToState),
		At:        t.Timestamp,
	})
	if err != nil {
		r.logger.Warn("Failed to record transition %s -> %s: %v", t.FromState, t.ToState, err)
	}
}

// BuildAttempt records the numbered build attempt.
func (r *Recorder) BuildAttempt(attempt int, res build.Result) {
	if r == nil {
		return
	}
	err := r.ops.RecordBuildAttempt(&BuildAttempt{
		RunID:    r.runID,
		Attempt:  attempt,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
		Stderr:   res.Stderr,
	})
	if err != nil {
		r.logger.Warn("Failed to record build attempt %d: %v", attempt, err)
	}
}

// Probe records every outcome of a probe report.
func (r *Recorder) Probe(report probe.Report) {
	if r == nil {
		return
	}
	for _, o := range report.Probed {
		result := &ProbeResult{RunID: r.runID, Route: o.Route, URL: o.URL, Status: o.Status}
		if o.Err != nil {
			result.Error = o.Err.Error()
		}
		if err := r.ops.RecordProbe(result); err != nil {
			r.logger.Warn("Failed to record probe of %s: %v", o.Route, err)
		}
	}
}
