package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
)

// Refresh run lifecycle states
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RefreshRun is the audit row for one execution of a pipeline task.
// A stalled pipeline shows up here as an aging completed_at, not as an
// API error.
type RefreshRun struct {
	ID          string     `db:"id" json:"id"`
	Task        string     `db:"task" json:"task"`
	Status      string     `db:"status" json:"status"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	RowsWritten int        `db:"rows_written" json:"rows_written"`
	Error       *string    `db:"error" json:"error,omitempty"`
}

// RunRepository handles refresh run bookkeeping
type RunRepository struct {
	db *database.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *database.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Start records the beginning of a task execution.
func (r *RunRepository) Start(ctx context.Context, task string) (*RefreshRun, error) {
	run := &RefreshRun{
		ID:     uuid.New().String(),
		Task:   task,
		Status: RunStatusRunning,
	}
	query := `
		INSERT INTO refresh_runs (id, task, status)
		VALUES ($1, $2, $3)
		RETURNING started_at
	`
	if err := r.db.QueryRowxContext(ctx, query, run.ID, run.Task, run.Status).Scan(&run.StartedAt); err != nil {
		return nil, err
	}
	return run, nil
}

// Complete marks a run as finished with the number of rows it wrote.
func (r *RunRepository) Complete(ctx context.Context, id string, rowsWritten int) error {
	query := `
		UPDATE refresh_runs
		SET status = $2, completed_at = NOW(), rows_written = $3
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, RunStatusCompleted, rowsWritten)
	return err
}

// Fail marks a run as failed with its error message.
func (r *RunRepository) Fail(ctx context.Context, id string, errMsg string) error {
	query := `
		UPDATE refresh_runs
		SET status = $2, completed_at = NOW(), error = $3
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, RunStatusFailed, errMsg)
	return err
}

// Get returns one run by id.
func (r *RunRepository) Get(ctx context.Context, id string) (*RefreshRun, error) {
	var run RefreshRun
	query := `
		SELECT id, task, status, started_at, completed_at, rows_written, error
		FROM refresh_runs
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("refresh run")
		}
		return nil, err
	}
	return &run, nil
}

// List returns runs, newest first, optionally filtered by task, with
// the total match count.
func (r *RunRepository) List(ctx context.Context, task string, limit, offset int) ([]RefreshRun, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if task != "" {
		where += " AND task = $" + itoa(argIdx)
		args = append(args, task)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM refresh_runs " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, task, status, started_at, completed_at, rows_written, error
		FROM refresh_runs ` + where + `
		ORDER BY started_at DESC
		LIMIT $` + itoa(argIdx) + ` OFFSET $` + itoa(argIdx+1)
	args = append(args, limit, offset)

	runs := []RefreshRun{}
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// LatestByTask returns the most recent run of every task. Powers the
// staleness view on /health and the runs API.
func (r *RunRepository) LatestByTask(ctx context.Context) ([]RefreshRun, error) {
	runs := []RefreshRun{}
	query := `
		SELECT DISTINCT ON (task) id, task, status, started_at, completed_at, rows_written, error
		FROM refresh_runs
		ORDER BY task, started_at DESC
	`
	if err := r.db.SelectContext(ctx, &runs, query); err != nil {
		return nil, err
	}
	return runs, nil
}
