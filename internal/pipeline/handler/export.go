package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler handles procurement export endpoints
type ExportHandler struct {
	service *service.ExportService
	logger  *logger.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(svc *service.ExportService, log *logger.Logger) *ExportHandler {
	return &ExportHandler{
		service: svc,
		logger:  log,
	}
}

// ProcurementCSV generates and serves the procurement list as CSV
func (h *ExportHandler) ProcurementCSV(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.ProcurementCSV(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate procurement CSV")
		httputil.Error(w, err)
		return
	}

	filename := fmt.Sprintf("procurement-%s.csv", time.Now().Format("2006-01-02"))
	httputil.Attachment(w, filename, "text/csv", body)
}

// ProcurementXLSX generates and serves the procurement workbook
func (h *ExportHandler) ProcurementXLSX(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.ProcurementXLSX(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate procurement workbook")
		httputil.Error(w, err)
		return
	}

	filename := fmt.Sprintf("procurement-%s.xlsx", time.Now().Format("2006-01-02"))
	httputil.Attachment(w, filename, xlsxContentType, body)
}
