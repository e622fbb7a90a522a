package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/events"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/metrics"
	"github.com/stockpulse/stockpulse-backend/pkg/runlock"
)

// taskRunner wraps one compute pass with the distributed run lock,
// refresh_runs bookkeeping, lifecycle events and metrics. Embedded by
// every service that owns scheduled tasks.
type taskRunner struct {
	runRepo *repository.RunRepository
	locker  *runlock.Locker
	events  *events.PipelineEventPublisher
	logger  *logger.Logger
}

// run executes fn under the task's run lock. fn returns the rows it
// wrote plus counts for the completion event. Lock contention surfaces
// as an ErrRunInProgress AppError; callers treat it as a skipped run.
func (t *taskRunner) run(ctx context.Context, task string, fn func(context.Context) (int, map[string]int, error)) (*repository.RefreshRun, error) {
	release, err := t.locker.Acquire(ctx, task)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	run, err := t.runRepo.Start(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("%s: start run: %w", task, err)
	}

	written, counts, err := fn(ctx)
	if err != nil {
		if failErr := t.runRepo.Fail(ctx, run.ID, err.Error()); failErr != nil {
			t.logger.Error().Err(failErr).Str("task", task).Msg("failed to record run failure")
		}
		t.events.PublishRefreshFailed(ctx, run.ID, task, err)
		metrics.RecordTaskRun(task, "failed", time.Since(start))
		return nil, fmt.Errorf("%s: %w", task, err)
	}

	if err := t.runRepo.Complete(ctx, run.ID, written); err != nil {
		t.logger.Error().Err(err).Str("task", task).Msg("failed to record run completion")
	}

	duration := time.Since(start)
	t.events.PublishRefreshCompleted(ctx, run.ID, task, duration, counts)
	metrics.RecordTaskRun(task, "completed", duration)
	t.logger.Info().
		Str("task", task).
		Int("rows_written", written).
		Dur("duration", duration).
		Msg("task completed")

	completedAt := time.Now()
	run.Status = repository.RunStatusCompleted
	run.CompletedAt = &completedAt
	run.RowsWritten = written
	return run, nil
}
