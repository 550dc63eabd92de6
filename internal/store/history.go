package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/stateshift/internal/state"
)

// RunStatus is the outcome of a migration run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	// RunSeeded marks a fresh install that saved the default document.
	RunSeeded RunStatus = "seeded"
	// RunCurrent marks a load that found the document already current.
	RunCurrent RunStatus = "current"
)

// Run is one migration attempt against a document key.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	DocKey     string    `json:"docKey" yaml:"docKey"`
	From       int       `json:"from" yaml:"from"`
	To         int       `json:"to" yaml:"to"`
	Status     RunStatus `json:"status" yaml:"status"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero" yaml:"finishedAt,omitempty"`
	Seq        int64     `json:"seq" yaml:"seq"`
}

// StepRecord is one stamped step within a run.
type StepRecord struct {
	RunID    string        `json:"runId" yaml:"runId"`
	Version  int           `json:"version" yaml:"version"`
	Name     string        `json:"name" yaml:"name"`
	Before   string        `json:"before" yaml:"before"`
	After    string        `json:"after" yaml:"after"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// BeginRun inserts run with status running. Seq is assigned by the store.
func (d *Documents) BeginRun(ctx context.Context, run Run) error {
	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "migration_runs")
	if err != nil {
		return err
	}

	status := run.Status
	if status == "" {
		status = RunRunning
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO migration_runs (id, doc_key, from_version, to_version, status, started_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, d.key, run.From, run.From, string(status), formatTime(run.StartedAt), seq)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.ID, err)
	}
	return tx.Commit()
}

// Checkpoint saves the document stamped by step and records the step in
// one transaction, so history never claims a step the document lacks.
func (d *Documents) Checkpoint(ctx context.Context, doc state.Document, step StepRecord) error {
	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer tx.Rollback()

	if err := saveTx(ctx, tx, d.key, doc); err != nil {
		return err
	}
	if err := insertStep(ctx, tx, step); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE migration_runs SET to_version = ? WHERE id = ?
	`, step.Version, step.RunID); err != nil {
		return fmt.Errorf("checkpoint: advance run: %w", err)
	}
	return tx.Commit()
}

// RecordStep records a step without touching the document. Used when
// checkpointing is off and the document is saved once at the end.
func (d *Documents) RecordStep(ctx context.Context, step StepRecord) error {
	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	defer tx.Rollback()

	if err := insertStep(ctx, tx, step); err != nil {
		return err
	}
	return tx.Commit()
}

// FinishRun sets the final status of a run.
func (d *Documents) FinishRun(ctx context.Context, runID string, status RunStatus, to int, runErr string, at time.Time) error {
	res, err := d.store.db.ExecContext(ctx, `
		UPDATE migration_runs
		SET status = ?, to_version = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, string(status), to, runErr, formatTime(at), runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// Runs returns the runs recorded for key, oldest first.
func (s *Store) Runs(ctx context.Context, key string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_key, from_version, to_version, status, error, started_at, finished_at, seq
		FROM migration_runs
		WHERE doc_key = ?
		ORDER BY seq ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r                 Run
			status            string
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.DocKey, &r.From, &r.To, &status, &r.Error, &started, &finished, &r.Seq); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = RunStatus(status)
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("run %s started_at: %w", r.ID, err)
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("run %s finished_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Steps returns the steps recorded for runID in version order.
func (s *Store) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, version, name, before_fp, after_fp, duration_us
		FROM migration_steps
		WHERE run_id = ?
		ORDER BY version ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []StepRecord{}
	for rows.Next() {
		var (
			st StepRecord
			us int64
		)
		if err := rows.Scan(&st.RunID, &st.Version, &st.Name, &st.Before, &st.After, &us); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		st.Duration = time.Duration(us) * time.Microsecond
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

func insertStep(ctx context.Context, tx *sql.Tx, step StepRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO migration_steps (run_id, version, name, before_fp, after_fp, duration_us)
		VALUES (?, ?, ?, ?, ?, ?)
	`, step.RunID, step.Version, step.Name, step.Before, step.After, step.Duration.Microseconds())
	if err != nil {
		return fmt.Errorf("record step %d of run %s: %w", step.Version, step.RunID, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
