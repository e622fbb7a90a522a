package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/consumers"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/events"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/handler"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/messaging"
	"github.com/stockpulse/stockpulse-backend/pkg/metrics"
	"github.com/stockpulse/stockpulse-backend/pkg/runlock"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("pipeline-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("pipeline-service", cfg.Server.Environment)
	log.Info().Msg("starting Pipeline Service")

	// Initialize Prometheus metrics
	if cfg.Metrics.Enabled {
		metrics.Init(cfg)
	}

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.ApplyMigrations(migrateCtx, repository.Migrations()); err != nil {
		migrateCancel()
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}
	migrateCancel()

	// Connect to Redis for run locks
	locker, err := runlock.New(cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer locker.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewPipelineEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	movementRepo := repository.NewMovementRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	healthRepo := repository.NewHealthRepository(db)
	reorderRepo := repository.NewReorderRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	qualityRepo := repository.NewQualityRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	runRepo := repository.NewRunRepository(db)

	// Initialize services
	ingestionService := service.NewIngestionService(movementRepo, qualityRepo, publisher, log)
	refreshService := service.NewRefreshService(statsRepo, healthRepo, reorderRepo, poRepo, supplierRepo, runRepo, locker, publisher, cfg.Pipeline, log)
	alertDispatcher := service.NewAlertDispatcher(healthRepo, reorderRepo, alertRepo, runRepo, locker, publisher, cfg.Alerts, log)
	qualityService := service.NewQualityService(qualityRepo, runRepo, locker, publisher, cfg.Pipeline, log)
	retentionService := service.NewRetentionService(alertRepo, runRepo, locker, publisher, cfg.Alerts, log)
	analyticsService := service.NewAnalyticsService(analyticsRepo, poRepo, reorderRepo, cfg.Budget, log)
	exportService := service.NewExportService(reorderRepo, analyticsRepo, log)

	// Initialize handlers
	movementHandler := handler.NewMovementHandler(movementRepo, ingestionService, log)
	statsHandler := handler.NewStatsHandler(statsRepo, log)
	healthHandler := handler.NewHealthRecordHandler(healthRepo, log)
	reorderHandler := handler.NewReorderHandler(reorderRepo, refreshService, log)
	poHandler := handler.NewPurchaseOrderHandler(poRepo, log)
	supplierHandler := handler.NewSupplierHandler(supplierRepo, log)
	alertHandler := handler.NewAlertHandler(alertDispatcher, log)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, log)
	qualityHandler := handler.NewQualityHandler(qualityService, log)
	exportHandler := handler.NewExportHandler(exportService, log)
	pipelineHandler := handler.NewPipelineHandler(refreshService, alertDispatcher, retentionService, runRepo, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start alert batch consumer
	alertConsumer, err := consumers.NewAlertBatchConsumer(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create alert batch consumer")
	}
	if err := alertConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start alert batch consumer")
	}

	// Start the pipeline scheduler
	scheduler := service.NewPipelineScheduler(refreshService, alertDispatcher, qualityService, retentionService, cfg.Pipeline, cfg.Alerts, log)
	scheduler.Start(ctx)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "X-User-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.Metrics)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "pipeline-service",
			"database": db.Health(r.Context()),
			"redis":    locker.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// Prometheus scrape endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/movements", func(r chi.Router) {
			r.Get("/", movementHandler.List)
			r.Post("/", movementHandler.IngestBatch)
			r.Post("/csv", movementHandler.UploadCSV)
		})

		r.Get("/stats", statsHandler.List)

		r.Route("/health-records", func(r chi.Router) {
			r.Get("/", healthHandler.List)
			r.Get("/status-counts", healthHandler.StatusCounts)
		})

		r.Route("/reorders", func(r chi.Router) {
			r.Get("/", reorderHandler.List)
			r.Get("/simulate", reorderHandler.Simulate)
		})

		r.Get("/purchase-orders", poHandler.List)

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", supplierHandler.List)
			r.Post("/", supplierHandler.Upsert)
			r.Get("/{id}", supplierHandler.Get)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", alertHandler.List)
			r.Get("/summary", alertHandler.Summary)
			r.Get("/{id}", alertHandler.Get)
			r.Post("/{id}/acknowledge", alertHandler.Acknowledge)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/locations", analyticsHandler.Locations)
			r.Get("/items", analyticsHandler.Items)
			r.Get("/budget", analyticsHandler.Budget)
		})

		r.Get("/quality/findings", qualityHandler.ListFindings)

		r.Route("/exports", func(r chi.Router) {
			r.Get("/procurement.csv", exportHandler.ProcurementCSV)
			r.Get("/procurement.xlsx", exportHandler.ProcurementXLSX)
		})

		r.Route("/pipeline", func(r chi.Router) {
			r.Post("/refresh", pipelineHandler.RefreshAll)
			r.Post("/refresh/{task}", pipelineHandler.RefreshTask)
			r.Post("/alerts/immediate", pipelineHandler.ImmediateAlerts)
			r.Post("/alerts/daily", pipelineHandler.DailyAlerts)
			r.Post("/alerts/archive", pipelineHandler.ArchiveAlerts)
			r.Post("/quality/scan", qualityHandler.Scan)
			r.Get("/runs", pipelineHandler.ListRuns)
			r.Get("/runs/latest", pipelineHandler.LatestRuns)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop scheduled work first so in-flight runs finish cleanly, then
	// cancel the consumer context.
	scheduler.Stop()
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
