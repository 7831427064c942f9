package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = `id, run_trigger, status, started_at, finished_at,
    fetched, discovered, already_known, channels_failed,
    transcript_attempted, transcript_succeeded, transcript_transient_failed, transcript_permanent_failed,
    summary_attempted, summary_succeeded, summary_transient_failed, summary_permanent_failed,
    error_message`

// BeginRun opens a new run record in the in_progress state. The record exists
// in the database before any pipeline work starts so a crash mid-run is still
// visible in run history.
func (s *Store) BeginRun(ctx context.Context, trigger Trigger) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    RunInProgress,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (id, run_trigger, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID,
		run.Trigger,
		run.Status,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// FinalizeRun persists the run's counters and closes it out. Finalized runs
// are never updated again.
func (s *Store) FinalizeRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.Status == RunInProgress {
		run.Status = RunCompleted
	}
	now := time.Now().UTC()
	run.FinishedAt = &now

	_, err := s.execWithRetry(
		ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?,
             fetched = ?, discovered = ?, already_known = ?, channels_failed = ?,
             transcript_attempted = ?, transcript_succeeded = ?, transcript_transient_failed = ?, transcript_permanent_failed = ?,
             summary_attempted = ?, summary_succeeded = ?, summary_transient_failed = ?, summary_permanent_failed = ?,
             error_message = ?
         WHERE id = ? AND status = ?`,
		run.Status,
		formatTime(now),
		run.Fetched,
		run.Discovered,
		run.AlreadyKnown,
		run.ChannelsFailed,
		run.Transcript.Attempted,
		run.Transcript.Succeeded,
		run.Transcript.TransientFailed,
		run.Transcript.PermanentFailed,
		run.Summary.Attempted,
		run.Summary.Succeeded,
		run.Summary.TransientFailed,
		run.Summary.PermanentFailed,
		nullableString(run.ErrorMessage),
		run.ID,
		RunInProgress,
	)
	if err != nil {
		return fmt.Errorf("finalize run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun fetches a run by identifier. Returns nil when missing.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first, up to limit (all runs when limit <= 0).
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SweepStaleRuns marks in_progress runs older than the cutoff as aborted.
// Called at daemon startup so crashed runs show up in history instead of
// hanging open forever.
func (s *Store) SweepStaleRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, error_message = 'run abandoned (process exited)'
         WHERE status = ? AND started_at < ?`,
		RunAborted,
		formatTime(time.Now()),
		RunInProgress,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep stale runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		triggerStr  string
		statusStr   string
		startedRaw  string
		finishedRaw sql.NullString
		errMsg      sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&triggerStr,
		&statusStr,
		&startedRaw,
		&finishedRaw,
		&run.Fetched,
		&run.Discovered,
		&run.AlreadyKnown,
		&run.ChannelsFailed,
		&run.Transcript.Attempted,
		&run.Transcript.Succeeded,
		&run.Transcript.TransientFailed,
		&run.Transcript.PermanentFailed,
		&run.Summary.Attempted,
		&run.Summary.Succeeded,
		&run.Summary.TransientFailed,
		&run.Summary.PermanentFailed,
		&errMsg,
	); err != nil {
		return nil, err
	}
	run.Trigger = Trigger(triggerStr)
	run.Status = RunStatus(statusStr)
	run.ErrorMessage = errMsg.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}
