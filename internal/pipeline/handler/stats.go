package handler

import (
	"net/http"
	"strconv"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// StatsHandler handles stats snapshot endpoints
type StatsHandler struct {
	repo   *repository.StatsRepository
	logger *logger.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(repo *repository.StatsRepository, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		repo:   repo,
		logger: log,
	}
}

// List lists stats snapshots
// GET /stats
func (h *StatsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	snapshots, total, err := h.repo.List(r.Context(),
		r.URL.Query().Get("location"),
		r.URL.Query().Get("item"),
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

	httputil.JSONWithMeta(w, http.StatusOK, snapshots, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}
