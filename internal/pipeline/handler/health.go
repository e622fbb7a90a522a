package handler

import (
	"net/http"
	"strconv"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// HealthRecordHandler handles stock health endpoints
type HealthRecordHandler struct {
	repo   *repository.HealthRepository
	logger *logger.Logger
}

// NewHealthRecordHandler creates a new health record handler
func NewHealthRecordHandler(repo *repository.HealthRepository, log *logger.Logger) *HealthRecordHandler {
	return &HealthRecordHandler{
		repo:   repo,
		logger: log,
	}
}

// List lists health records, most severe first
// GET /health-records
func (h *HealthRecordHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	records, total, err := h.repo.List(r.Context(),
		r.URL.Query().Get("status"),
		r.URL.Query().Get("location"),
		perPage, (page-1)*perPage,
	)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, records, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}

// StatusCounts returns the record count per stock status
// GET /health-records/status-counts
func (h *HealthRecordHandler) StatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.StatusCounts(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, counts)
}
