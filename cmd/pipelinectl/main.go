package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/events"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/messaging"
	"github.com/stockpulse/stockpulse-backend/pkg/runlock"
)

const taskList = "refresh-stats, refresh-health, refresh-reorder, refresh-purchase-orders, refresh-all, immediate-check, daily-digest, archive-alerts, quality-scan"

// pipelinectl runs a single pipeline task and exits. It is meant for
// cron jobs and operators; it shares the Redis run locks with the
// service, so it never races a scheduled run of the same task.
func main() {
	task := flag.String("task", "", "Required: task to run ("+taskList+")")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall run timeout")
	flag.Parse()

	if *task == "" {
		fmt.Fprintln(os.Stderr, "-task is required; one of: "+taskList)
		os.Exit(2)
	}

	cfg, err := config.LoadWithValidation("pipeline-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("pipelinectl", cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	locker, err := runlock.New(cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer locker.Close()

	// Events are best-effort for a one-shot run; a down broker must not
	// block a cron task.
	var publisher *events.PipelineEventPublisher
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Warn().Err(err).Msg("RabbitMQ unavailable, running without events")
	} else {
		defer rmq.Close()
		publisher, err = events.NewPipelineEventPublisher(rmq, log)
		if err != nil {
			log.Warn().Err(err).Msg("Event publisher unavailable, running without events")
			publisher = nil
		}
	}

	statsRepo := repository.NewStatsRepository(db)
	healthRepo := repository.NewHealthRepository(db)
	reorderRepo := repository.NewReorderRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	qualityRepo := repository.NewQualityRepository(db)
	runRepo := repository.NewRunRepository(db)

	refreshService := service.NewRefreshService(statsRepo, healthRepo, reorderRepo, poRepo, supplierRepo, runRepo, locker, publisher, cfg.Pipeline, log)
	alertDispatcher := service.NewAlertDispatcher(healthRepo, reorderRepo, alertRepo, runRepo, locker, publisher, cfg.Alerts, log)
	qualityService := service.NewQualityService(qualityRepo, runRepo, locker, publisher, cfg.Pipeline, log)
	retentionService := service.NewRetentionService(alertRepo, runRepo, locker, publisher, cfg.Alerts, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	start := time.Now()
	switch *task {
	case "refresh-stats":
		_, err = refreshService.RefreshStats(ctx)
	case "refresh-health":
		_, err = refreshService.RefreshHealth(ctx)
	case "refresh-reorder":
		_, err = refreshService.RefreshReorders(ctx)
	case "refresh-purchase-orders":
		_, err = refreshService.RefreshPurchaseOrders(ctx)
	case "refresh-all":
		_, err = refreshService.RefreshAll(ctx)
	case "immediate-check":
		_, err = alertDispatcher.RunImmediate(ctx)
	case "daily-digest":
		_, err = alertDispatcher.RunDaily(ctx)
	case "archive-alerts":
		_, err = retentionService.ArchiveOldAlerts(ctx)
	case "quality-scan":
		_, err = qualityService.RunScan(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown task %q; one of: %s\n", *task, taskList)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, errors.ErrRunInProgress) {
			log.Info().Str("task", *task).Msg("run already in progress elsewhere, nothing to do")
			return
		}
		log.Fatal().Err(err).Str("task", *task).Msg("task failed")
	}

	log.Info().Str("task", *task).Dur("duration", time.Since(start)).Msg("task completed")
}
