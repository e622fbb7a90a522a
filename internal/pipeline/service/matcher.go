package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
)

// Supplier score weights. Reliability dominates, then lead time, then
// price competitiveness relative to the cheapest active supplier for
// the item.
const (
	weightReliability = 0.5
	weightLeadTime    = 0.3
	weightPrice       = 0.2
)

// SupplierScore ranks one supplier against the cheapest unit price
// offered for the same item. Higher is better.
func SupplierScore(s repository.Supplier, minPrice decimal.Decimal) float64 {
	leadTerm := 100 - 10*float64(s.AvgLeadTimeDays)

	priceTerm := 100.0
	if !minPrice.IsZero() {
		ratio, _ := s.UnitPrice.Div(minPrice).Float64()
		priceTerm = 100 - 100*(ratio-1)
	}

	return weightReliability*s.ReliabilityScore + weightLeadTime*leadTerm + weightPrice*priceTerm
}

// SelectSupplier picks the best-ranked supplier from the candidates for
// one item. Ties break on lower lead time, then lower unit price, then
// supplier id, so the result is deterministic for a given registry
// state. Returns nil when candidates is empty.
func SelectSupplier(candidates []repository.Supplier) *repository.Supplier {
	if len(candidates) == 0 {
		return nil
	}

	minPrice := candidates[0].UnitPrice
	for _, c := range candidates[1:] {
		if c.UnitPrice.LessThan(minPrice) {
			minPrice = c.UnitPrice
		}
	}

	ranked := make([]repository.Supplier, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := SupplierScore(ranked[i], minPrice), SupplierScore(ranked[j], minPrice)
		if si != sj {
			return si > sj
		}
		if ranked[i].AvgLeadTimeDays != ranked[j].AvgLeadTimeDays {
			return ranked[i].AvgLeadTimeDays < ranked[j].AvgLeadTimeDays
		}
		if cmp := ranked[i].UnitPrice.Cmp(ranked[j].UnitPrice); cmp != 0 {
			return cmp < 0
		}
		return ranked[i].SupplierID < ranked[j].SupplierID
	})

	best := ranked[0]
	return &best
}

// OrderPriority maps projected stockout timing against the supplier's
// lead time. A nil days-until-stockout means no projected stockout, so
// the order is planned.
func OrderPriority(daysUntilStockout *float64, leadTimeDays int) string {
	if daysUntilStockout == nil {
		return OrderPriorityPlanned
	}
	lead := float64(leadTimeDays)
	switch {
	case *daysUntilStockout < lead:
		return OrderPriorityUrgent
	case *daysUntilStockout < 1.5*lead:
		return OrderPriorityNormal
	default:
		return OrderPriorityPlanned
	}
}

// BuildPurchaseOrder joins one recommendation with its selected
// supplier. Money math stays in decimals end to end.
func BuildPurchaseOrder(rec repository.ReorderRecommendation, s repository.Supplier, stockStatus string, orderDate time.Time) repository.PurchaseOrder {
	qty := decimal.NewFromFloat(rec.ReorderQuantity)
	return repository.PurchaseOrder{
		Location:             rec.Location,
		ItemName:             rec.ItemName,
		SupplierID:           s.SupplierID,
		SupplierName:         s.Name,
		OrderQuantity:        rec.ReorderQuantity,
		UnitPrice:            s.UnitPrice,
		TotalCost:            s.UnitPrice.Mul(qty).Round(2),
		LeadTimeDays:         s.AvgLeadTimeDays,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: orderDate.AddDate(0, 0, s.AvgLeadTimeDays),
		OrderPriority:        OrderPriority(rec.DaysUntilStockout, s.AvgLeadTimeDays),
		StockStatus:          stockStatus,
	}
}
