package persistence

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

// Run is one pipeline execution.
type Run struct {
	ID               string     `json:"id"`
	Request          string     `json:"request"`
	Description      string     `json:"description"`
	Status           string     `json:"status"`
	ErrorStage       string     `json:"error_stage,omitempty"`
	ErrorKind        string     `json:"error_kind,omitempty"`
	Error            string     `json:"error,omitempty"`
	DocumentJSON     string     `json:"document_json,omitempty"`
	Model            string     `json:"model"`
	PromptTokens     int64      `json:"prompt_tokens"`
	CompletionTokens int64      `json:"completion_tokens"`
	CostUSD          float64    `json:"cost_usd"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
}

// RunOutcome is what FinishRun records when a run ends.
type RunOutcome struct {
	Status           string
	Description      string
	ErrorStage       string
	ErrorKind        string
	Error            string
	DocumentJSON     string
	PromptTokens     int64
	CompletionTokens int64
	CostUSD          float64
}

// Transition is a recorded stage state change.
type Transition struct {
	RunID     string    `json:"run_id"`
	Agent     string    `json:"agent"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	At        time.Time `json:"at"`
}

// BuildAttempt is one toolchain build of the generated server.
type BuildAttempt struct {
	RunID    string        `json:"run_id"`
	Attempt  int           `json:"attempt"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	Stderr   string        `json:"stderr"`
	At       time.Time     `json:"at"`
}

// ProbeResult is one endpoint probe against the running server.
type ProbeResult struct {
	RunID  string    `json:"run_id"`
	Route  string    `json:"route"`
	URL    string    `json:"url"`
	Status int       `json:"status"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// GenerateRunID returns a new run identifier.
func GenerateRunID() string {
	return uuid.New().String()
}
