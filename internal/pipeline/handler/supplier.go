package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// SupplierHandler handles supplier registry endpoints
type SupplierHandler struct {
	repo   *repository.SupplierRepository
	logger *logger.Logger
}

// NewSupplierHandler creates a new supplier handler
func NewSupplierHandler(repo *repository.SupplierRepository, log *logger.Logger) *SupplierHandler {
	return &SupplierHandler{
		repo:   repo,
		logger: log,
	}
}

// UpsertSupplierRequest carries a full registry row; an existing entry
// with the same supplier_id is replaced field for field.
type UpsertSupplierRequest struct {
	SupplierID       string          `json:"supplier_id" validate:"required,max=100"`
	Name             string          `json:"name" validate:"required,max=200"`
	ItemName         string          `json:"item_name" validate:"required,max=200"`
	AvgLeadTimeDays  int             `json:"avg_lead_time_days" validate:"required,gt=0"`
	ReliabilityScore float64         `json:"reliability_score" validate:"gte=0,lte=100"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	ContactEmail     *string         `json:"contact_email" validate:"omitempty,email"`
	Phone            *string         `json:"phone" validate:"omitempty,max=50"`
	LastDeliveryDate *time.Time      `json:"last_delivery_date"`
	TotalOrders      int             `json:"total_orders" validate:"gte=0"`
	OnTimeDeliveries int             `json:"on_time_deliveries" validate:"gte=0"`
	IsActive         *bool           `json:"is_active"`
}

// Upsert creates or replaces a supplier registry entry
func (h *SupplierHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertSupplierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}
	if !req.UnitPrice.IsPositive() {
		httputil.Error(w, errors.BadRequest("unit_price must be positive"))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	supplier := &repository.Supplier{
		SupplierID:       req.SupplierID,
		Name:             req.Name,
		ItemName:         req.ItemName,
		AvgLeadTimeDays:  req.AvgLeadTimeDays,
		ReliabilityScore: req.ReliabilityScore,
		UnitPrice:        req.UnitPrice,
		ContactEmail:     req.ContactEmail,
		Phone:            req.Phone,
		LastDeliveryDate: req.LastDeliveryDate,
		TotalOrders:      req.TotalOrders,
		OnTimeDeliveries: req.OnTimeDeliveries,
		IsActive:         active,
	}

	if err := h.repo.Upsert(r.Context(), supplier); err != nil {
		h.logger.Error().Err(err).Str("supplier_id", req.SupplierID).Msg("Failed to upsert supplier")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, supplier)
}

// List returns supplier registry entries with optional filters
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	item := r.URL.Query().Get("item")
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		activeOnly, _ = strconv.ParseBool(raw)
	}

	suppliers, total, err := h.repo.List(r.Context(), item, activeOnly, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, suppliers, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}

// Get returns one supplier registry entry
func (h *SupplierHandler) Get(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, supplier)
}
