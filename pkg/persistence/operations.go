package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MaxStoredOutput caps the bytes of build output kept per attempt. The tail is kept.
const MaxStoredOutput = 16 << 10

const timeLayout = time.RFC3339Nano

// DatabaseOperations provides methods for run history reads and writes.
type DatabaseOperations struct {
	db *sql.DB
}

// NewDatabaseOperations creates a new DatabaseOperations instance.
func NewDatabaseOperations(db *sql.DB) *DatabaseOperations {
	return &DatabaseOperations{db: db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}

// CreateRun inserts a run in RunStatusRunning.
func (ops *DatabaseOperations) CreateRun(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	_, err := ops.db.Exec(`
		INSERT INTO runs (id, request, description, status, model, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Request, run.Description, run.Status, run.Model, formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records the outcome of a run and stamps its end time.
func (ops *DatabaseOperations) FinishRun(runID string, out RunOutcome) error {
	result, err := ops.db.Exec(`
		UPDATE runs SET
			status = ?, description = ?, error_stage = ?, error_kind = ?, error = ?,
			document_json = ?, prompt_tokens = ?, completion_tokens = ?, cost_usd = ?, ended_at = ?
		WHERE id = ?
	`, out.Status, out.Description, out.ErrorStage, out.ErrorKind, out.Error,
		out.DocumentJSON, out.PromptTokens, out.CompletionTokens, out.CostUSD, formatTime(time.Now()), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// RecordTransition appends a stage state change.
func (ops *DatabaseOperations) RecordTransition(t *Transition) error {
	_, err := ops.db.Exec(`
		INSERT INTO transitions (run_id, agent, from_state, to_state, at)
		VALUES (?, ?, ?, ?, ?)
	`, t.RunID, t.Agent, t.FromState, t.ToState, formatTime(t.At))
	if err != nil {
		return fmt.Errorf("failed to record transition for run %s: %w", t.RunID, err)
	}
	return nil
}

// RecordBuildAttempt appends a build attempt. Stderr is truncated to its last MaxStoredOutput bytes.
func (ops *DatabaseOperations) RecordBuildAttempt(b *BuildAttempt) error {
	if b.At.IsZero() {
		b.At = time.Now()
	}
	_, err := ops.db.Exec(`
		INSERT INTO build_attempts (run_id, attempt, exit_code, duration_ms, stderr, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.RunID, b.Attempt, b.ExitCode, b.Duration.Milliseconds(), tail(b.Stderr, MaxStoredOutput), formatTime(b.At))
	if err != nil {
		return fmt.Errorf("failed to record build attempt for run %s: %w", b.RunID, err)
	}
	return nil
}

// RecordProbe appends an endpoint probe result.
func (ops *DatabaseOperations) RecordProbe(p *ProbeResult) error {
	if p.At.IsZero() {
		p.At = time.Now()
	}
	_, err := ops.db.Exec(`
		INSERT INTO probes (run_id, route, url, status, error, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.RunID, p.Route, p.URL, p.Status, p.Error, formatTime(p.At))
	if err != nil {
		return fmt.Errorf("failed to record probe for run %s: %w", p.RunID, err)
	}
	return nil
}

const runColumns = `id, request, description, status, error_stage, error_kind, error,
	document_json, model, prompt_tokens, completion_tokens, cost_usd, started_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt string
	var endedAt sql.NullString

	err := row.Scan(&run.ID, &run.Request, &run.Description, &run.Status, &run.ErrorStage, &run.ErrorKind,
		&run.Error, &run.DocumentJSON, &run.Model, &run.PromptTokens, &run.CompletionTokens, &run.CostUSD,
		&startedAt, &endedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t, err := parseTime(endedAt.String)
		if err != nil {
			return nil, err
		}
		run.EndedAt = &t
	}
	return &run, nil
}

// GetRun returns a run by ID.
func (ops *DatabaseOperations) GetRun(runID string) (*Run, error) {
	run, err := scanRun(ops.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (ops *DatabaseOperations) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := ops.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetTransitions returns the recorded transitions of a run in order.
func (ops *DatabaseOperations) GetTransitions(runID string) ([]*Transition, error) {
	rows, err := ops.db.Query(`
		SELECT run_id, agent, from_state, to_state, at FROM transitions WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var out []*Transition
	for rows.Next() {
		var t Transition
		var at string
		if err := rows.Scan(&t.RunID, &t.Agent, &t.FromState, &t.ToState, &at); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		if t.At, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transitions: %w", err)
	}
	return out, nil
}

// GetBuildAttempts returns the build attempts of a run in order.
func (ops *DatabaseOperations) GetBuildAttempts(runID string) ([]*BuildAttempt, error) {
	rows, err := ops.db.Query(`
		SELECT run_id, attempt, exit_code, duration_ms, stderr, at FROM build_attempts WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query build attempts: %w", err)
	}
	defer rows.Close()

	var out []*BuildAttempt
	for rows.Next() {
		var b BuildAttempt
		var ms int64
		var at string
		if err := rows.Scan(&b.RunID, &b.Attempt, &b.ExitCode, &ms, &b.Stderr, &at); err != nil {
			return nil, fmt.Errorf("failed to scan build attempt: %w", err)
		}
		b.Duration = time.Duration(ms) * time.Millisecond
		if b.At, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate build attempts: %w", err)
	}
	return out, nil
}

// GetProbes returns the probe results of a run in order.
func (ops *DatabaseOperations) GetProbes(runID string) ([]*ProbeResult, error) {
	rows, err := ops.db.Query(`
		SELECT run_id, route, url, status, error, at FROM probes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query probes: %w", err)
	}
	defer rows.Close()

	var out []*ProbeResult
	for rows.Next() {
		var p ProbeResult
		var at string
		if err := rows.Scan(&p.RunID, &p.Route, &p.URL, &p.Status, &p.Error, &at); err != nil {
			return nil, fmt.Errorf("failed to scan probe: %w", err)
		}
		if p.At, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate probes: %w", err)
	}
	return out, nil
}
