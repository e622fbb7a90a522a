// Package handler exposes the pipeline's HTTP API. Handlers translate
// requests into repository and service calls; domain errors surface
// through httputil.Error.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// maxCSVUploadBytes caps in-memory CSV uploads.
const maxCSVUploadBytes = 32 << 20

// MovementHandler handles movement ledger endpoints
type MovementHandler struct {
	repo    *repository.MovementRepository
	service *service.IngestionService
	logger  *logger.Logger
}

// NewMovementHandler creates a new movement handler
func NewMovementHandler(repo *repository.MovementRepository, svc *service.IngestionService, log *logger.Logger) *MovementHandler {
	return &MovementHandler{
		repo:    repo,
		service: svc,
		logger:  log,
	}
}

// List lists movement records
// GET /movements
func (h *MovementHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	var from, to *time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httputil.Error(w, errors.BadRequest("from must be YYYY-MM-DD"))
			return
		}
		from = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httputil.Error(w, errors.BadRequest("to must be YYYY-MM-DD"))
			return
		}
		to = &t
	}

	records, total, err := h.repo.List(r.Context(),
		r.URL.Query().Get("location"),
		r.URL.Query().Get("item"),
		from, to,
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

// IngestBatchRequest is the JSON batch envelope.
type IngestBatchRequest struct {
	Source  string                  `json:"source"`
	Records []service.MovementInput `json:"records" validate:"required,min=1"`
}

// IngestBatch appends a JSON batch of movement rows
// POST /movements
func (h *MovementHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req IngestBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.IngestBatch(r.Context(), req.Source, req.Records)
	if err != nil {
		h.logger.Error().Err(err).Str("source", req.Source).Msg("failed to ingest movement batch")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// UploadCSV appends movement rows from an uploaded CSV file
// POST /movements/csv
func (h *MovementHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxCSVUploadBytes); err != nil {
		httputil.Error(w, errors.BadRequest("invalid multipart form"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing file in request"))
		return
	}
	defer file.Close()

	result, err := h.service.IngestCSV(r.Context(), file)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to ingest csv upload")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}
