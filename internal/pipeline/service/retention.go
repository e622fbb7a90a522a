package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/events"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/runlock"
)

// RetentionService prunes the alert log. Only acknowledged alerts past
// the retention window are eligible; an open alert stays until someone
// handles it, however old it gets.
type RetentionService struct {
	taskRunner
	alertRepo *repository.AlertRepository
	cfg       config.AlertsConfig
}

// NewRetentionService creates a new retention service
func NewRetentionService(
	alertRepo *repository.AlertRepository,
	runRepo *repository.RunRepository,
	locker *runlock.Locker,
	publisher *events.PipelineEventPublisher,
	cfg config.AlertsConfig,
	log *logger.Logger,
) *RetentionService {
	return &RetentionService{
		taskRunner: taskRunner{
			runRepo: runRepo,
			locker:  locker,
			events:  publisher,
			logger:  log.WithComponent("retention"),
		},
		alertRepo: alertRepo,
		cfg:       cfg,
	}
}

// ArchiveOldAlerts deletes acknowledged alerts older than the retention
// window.
func (s *RetentionService) ArchiveOldAlerts(ctx context.Context) (*repository.RefreshRun, error) {
	return s.run(ctx, TaskAlertArchive, func(ctx context.Context) (int, map[string]int, error) {
		cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
		deleted, err := s.alertRepo.DeleteOldAcknowledged(ctx, cutoff)
		if err != nil {
			return 0, nil, fmt.Errorf("delete acknowledged alerts: %w", err)
		}
		return int(deleted), map[string]int{"deleted": int(deleted)}, nil
	})
}
