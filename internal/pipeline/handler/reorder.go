package handler

import (
	"net/http"
	"strconv"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// ReorderHandler handles reorder recommendation endpoints
type ReorderHandler struct {
	repo    *repository.ReorderRepository
	refresh *service.RefreshService
	logger  *logger.Logger
}

// NewReorderHandler creates a new reorder handler
func NewReorderHandler(repo *repository.ReorderRepository, refresh *service.RefreshService, log *logger.Logger) *ReorderHandler {
	return &ReorderHandler{
		repo:    repo,
		refresh: refresh,
		logger:  log,
	}
}

// List returns reorder recommendations with optional filters
func (h *ReorderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	priority := r.URL.Query().Get("priority")
	location := r.URL.Query().Get("location")

	recs, total, err := h.repo.List(r.Context(), priority, location, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, recs, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}

// Simulate recomputes reorder quantities for a hypothetical coverage target
// without touching the stored recommendations.
func (h *ReorderHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("target_days")
	if raw == "" {
		httputil.Error(w, errors.BadRequest("target_days is required"))
		return
	}

	targetDays, err := strconv.Atoi(raw)
	if err != nil {
		httputil.Error(w, errors.BadRequest("target_days must be an integer"))
		return
	}

	recs, applied, err := h.refresh.Simulate(r.Context(), targetDays)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"target_days":     applied,
		"recommendations": recs,
	})
}
