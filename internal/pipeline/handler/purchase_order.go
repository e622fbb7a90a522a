package handler

import (
	"net/http"
	"strconv"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// PurchaseOrderHandler handles purchase order proposal endpoints
type PurchaseOrderHandler struct {
	repo   *repository.PurchaseOrderRepository
	logger *logger.Logger
}

// NewPurchaseOrderHandler creates a new purchase order handler
func NewPurchaseOrderHandler(repo *repository.PurchaseOrderRepository, log *logger.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		repo:   repo,
		logger: log,
	}
}

// List returns purchase order proposals with optional filters
func (h *PurchaseOrderHandler) List(w http.ResponseWriter, r *http.Request) {
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
	supplierID := r.URL.Query().Get("supplier_id")

	orders, total, err := h.repo.List(r.Context(), priority, location, supplierID, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, orders, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}
