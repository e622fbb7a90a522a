package handler

import (
	"net/http"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// AnalyticsHandler handles analytics endpoints
type AnalyticsHandler struct {
	service *service.AnalyticsService
	logger  *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(svc *service.AnalyticsService, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: svc,
		logger:  log,
	}
}

// Locations returns the per-location stock overview
func (h *AnalyticsHandler) Locations(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.LocationSummaries(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summaries)
}

// Items returns the per-item performance overview
func (h *AnalyticsHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ItemPerformances(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, items)
}

// Budget returns the procurement budget report
func (h *AnalyticsHandler) Budget(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Budget(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}
