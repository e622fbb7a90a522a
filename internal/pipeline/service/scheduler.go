package service

import (
	"context"
	"sync"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// PipelineScheduler triggers every periodic task on its own cadence:
// the refresh chain, the immediate out-of-stock check, the daily digest
// plus quality scan, and the archive sweep. Loops never coordinate with
// each other; the run locks make overlapping triggers safe.
type PipelineScheduler struct {
	refresh     *RefreshService
	dispatcher  *AlertDispatcher
	quality     *QualityService
	retention   *RetentionService
	pipelineCfg config.PipelineConfig
	alertsCfg   config.AlertsConfig
	logger      *logger.Logger
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewPipelineScheduler creates a new pipeline scheduler
func NewPipelineScheduler(
	refresh *RefreshService,
	dispatcher *AlertDispatcher,
	quality *QualityService,
	retention *RetentionService,
	pipelineCfg config.PipelineConfig,
	alertsCfg config.AlertsConfig,
	log *logger.Logger,
) *PipelineScheduler {
	return &PipelineScheduler{
		refresh:     refresh,
		dispatcher:  dispatcher,
		quality:     quality,
		retention:   retention,
		pipelineCfg: pipelineCfg,
		alertsCfg:   alertsCfg,
		logger:      log.WithComponent("scheduler"),
	}
}

// Start launches the scheduler loops in background goroutines.
func (s *PipelineScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.every(ctx, "refresh_chain", s.pipelineCfg.RefreshInterval, true, func(ctx context.Context) {
		if _, err := s.refresh.RefreshAll(ctx); err != nil {
			s.logger.Error().Err(err).Msg("refresh chain finished with errors")
		}
	})

	s.every(ctx, "immediate_alerts", s.alertsCfg.ImmediateInterval, true, func(ctx context.Context) {
		s.fire(ctx, TaskImmediateAlerts, s.dispatcher.RunImmediate)
	})

	s.daily(ctx, "daily_digest", s.alertsCfg.DailyTime, func(ctx context.Context) {
		s.fire(ctx, TaskDailyAlerts, s.dispatcher.RunDaily)
		s.fire(ctx, TaskQualityScan, s.quality.RunScan)
	})

	s.every(ctx, "alert_archive", s.alertsCfg.ArchiveInterval, false, func(ctx context.Context) {
		s.fire(ctx, TaskAlertArchive, s.retention.ArchiveOldAlerts)
	})
}

// Stop cancels the loops and waits for them to drain.
func (s *PipelineScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// fire runs one task trigger. Losing the run lock to a concurrent
// trigger is normal operation, not a failure.
func (s *PipelineScheduler) fire(ctx context.Context, task string, fn func(context.Context) (*repository.RefreshRun, error)) {
	log := s.logger.WithTask(task)
	if _, err := fn(ctx); err != nil {
		if errors.Is(err, errors.ErrRunInProgress) {
			log.Info().Msg("run already in progress, skipping")
			return
		}
		log.Error().Err(err).Msg("scheduled task failed")
	}
}

// every runs fn on a fixed interval, optionally once at startup.
func (s *PipelineScheduler) every(ctx context.Context, name string, interval time.Duration, runAtStart bool, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info().Str("loop", name).Dur("interval", interval).Msg("scheduler loop started")

		if runAtStart {
			fn(ctx)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Str("loop", name).Msg("scheduler loop stopped")
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// daily runs fn at the given wall-clock time (format "15:04") once per
// day, in the process's local time zone.
func (s *PipelineScheduler) daily(ctx context.Context, name, at string, fn func(context.Context)) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		s.logger.Error().Err(err).Str("loop", name).Str("at", at).Msg("invalid daily time, loop disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info().Str("loop", name).Str("at", at).Msg("scheduler loop started")

		for {
			next := nextDailyTick(time.Now(), t.Hour(), t.Minute())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				s.logger.Info().Str("loop", name).Msg("scheduler loop stopped")
				return
			case <-timer.C:
				fn(ctx)
			}
		}
	}()
}

// nextDailyTick returns the next occurrence of hh:mm strictly after now.
func nextDailyTick(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
