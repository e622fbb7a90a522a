package handler

import (
	"net/http"
	"strconv"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// QualityHandler handles data quality endpoints
type QualityHandler struct {
	service *service.QualityService
	logger  *logger.Logger
}

// NewQualityHandler creates a new quality handler
func NewQualityHandler(svc *service.QualityService, log *logger.Logger) *QualityHandler {
	return &QualityHandler{
		service: svc,
		logger:  log,
	}
}

// ListFindings returns quality findings with optional filters
func (h *QualityHandler) ListFindings(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	checkName := r.URL.Query().Get("check")
	severity := r.URL.Query().Get("severity")
	location := r.URL.Query().Get("location")

	findings, total, err := h.service.ListFindings(r.Context(), checkName, severity, location, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, findings, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}

// Scan triggers a quality scan over the stats window
func (h *QualityHandler) Scan(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.RunScan(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, run)
}
