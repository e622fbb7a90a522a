package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// PipelineHandler exposes manual pipeline triggers and run history.
// Triggers share the run locks with the scheduler, so a manual call
// while the scheduled run is active returns a conflict.
type PipelineHandler struct {
	refresh    *service.RefreshService
	dispatcher *service.AlertDispatcher
	retention  *service.RetentionService
	runRepo    *repository.RunRepository
	logger     *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(
	refresh *service.RefreshService,
	dispatcher *service.AlertDispatcher,
	retention *service.RetentionService,
	runRepo *repository.RunRepository,
	log *logger.Logger,
) *PipelineHandler {
	return &PipelineHandler{
		refresh:    refresh,
		dispatcher: dispatcher,
		retention:  retention,
		runRepo:    runRepo,
		logger:     log,
	}
}

// RefreshAll runs the whole refresh chain and returns the runs it completed
func (h *PipelineHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	runs, err := h.refresh.RefreshAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Manual refresh chain failed")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, runs)
}

// RefreshTask runs a single refresh stage
func (h *PipelineHandler) RefreshTask(w http.ResponseWriter, r *http.Request) {
	var (
		run *repository.RefreshRun
		err error
	)

	task := chi.URLParam(r, "task")
	switch task {
	case "stats":
		run, err = h.refresh.RefreshStats(r.Context())
	case "health":
		run, err = h.refresh.RefreshHealth(r.Context())
	case "reorder":
		run, err = h.refresh.RefreshReorders(r.Context())
	case "purchase-orders":
		run, err = h.refresh.RefreshPurchaseOrders(r.Context())
	default:
		httputil.Error(w, errors.BadRequest("unknown refresh task: "+task))
		return
	}
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, run)
}

// ImmediateAlerts runs the immediate out-of-stock check
func (h *PipelineHandler) ImmediateAlerts(w http.ResponseWriter, r *http.Request) {
	run, err := h.dispatcher.RunImmediate(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, run)
}

// DailyAlerts runs the daily digest for critical and warning items
func (h *PipelineHandler) DailyAlerts(w http.ResponseWriter, r *http.Request) {
	run, err := h.dispatcher.RunDaily(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, run)
}

// ArchiveAlerts sweeps acknowledged alerts past the retention window
func (h *PipelineHandler) ArchiveAlerts(w http.ResponseWriter, r *http.Request) {
	run, err := h.retention.ArchiveOldAlerts(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, run)
}

// ListRuns returns pipeline run history
func (h *PipelineHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	task := r.URL.Query().Get("task")

	runs, total, err := h.runRepo.List(r.Context(), task, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, runs, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}

// LatestRuns returns the most recent run of every task
func (h *PipelineHandler) LatestRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runRepo.LatestByTask(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, runs)
}
