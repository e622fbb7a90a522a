package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementFixture represents test movement record data
type MovementFixture struct {
	Location     string
	ItemName     string
	CurrentStock float64
	ReceivedQty  float64
	IssuedQty    float64
	RecordDate   time.Time
}

// SupplierFixture represents test supplier catalog data
type SupplierFixture struct {
	SupplierID   string
	Name         string
	ItemName     string
	UnitPrice    decimal.Decimal
	LeadTimeDays int
	Reliability  float64
}

// FixtureFactory stamps out seed rows with unique names so tests only
// spell the fields they assert on.
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory returns a factory with a fresh name sequence.
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq feeds the unique default names.
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Movement creates a movement record fixture with defaults
func (f *FixtureFactory) Movement(opts ...func(*MovementFixture)) MovementFixture {
	seq := f.nextSeq()

	m := MovementFixture{
		Location:     fmt.Sprintf("Store-%02d", seq),
		ItemName:     fmt.Sprintf("Item %03d", seq),
		CurrentStock: 100,
		ReceivedQty:  0,
		IssuedQty:    10,
		RecordDate:   Date(time.Now().UTC()),
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// WithLocation sets the movement location
func WithLocation(location string) func(*MovementFixture) {
	return func(m *MovementFixture) {
		m.Location = location
	}
}

// WithItem sets the movement item name
func WithItem(name string) func(*MovementFixture) {
	return func(m *MovementFixture) {
		m.ItemName = name
	}
}

// WithStock sets the current stock level
func WithStock(stock float64) func(*MovementFixture) {
	return func(m *MovementFixture) {
		m.CurrentStock = stock
	}
}

// WithReceived sets the received quantity
func WithReceived(qty float64) func(*MovementFixture) {
	return func(m *MovementFixture) {
		m.ReceivedQty = qty
	}
}

// WithIssued sets the issued quantity
func WithIssued(qty float64) func(*MovementFixture) {
	return func(m *MovementFixture) {
		m.IssuedQty = qty
	}
}

// WithRecordDate sets the movement record date
func WithRecordDate(date time.Time) func(*MovementFixture) {
	return func(m *MovementFixture) {
		m.RecordDate = Date(date)
	}
}

// MovementSeries creates a run of daily movements for one location and item.
// Stock declines by dailyUsage each day starting from startStock, so the
// aggregated average usage over the series equals dailyUsage.
func (f *FixtureFactory) MovementSeries(location, item string, days int, startStock, dailyUsage float64, end time.Time) []MovementFixture {
	series := make([]MovementFixture, 0, days)
	for i := days - 1; i >= 0; i-- {
		stock := startStock - dailyUsage*float64(days-1-i)
		if stock < 0 {
			stock = 0
		}
		series = append(series, MovementFixture{
			Location:     location,
			ItemName:     item,
			CurrentStock: stock,
			ReceivedQty:  0,
			IssuedQty:    dailyUsage,
			RecordDate:   Date(end.AddDate(0, 0, -i)),
		})
	}
	return series
}

// Supplier creates a supplier fixture with defaults
func (f *FixtureFactory) Supplier(opts ...func(*SupplierFixture)) SupplierFixture {
	seq := f.nextSeq()

	s := SupplierFixture{
		SupplierID:   fmt.Sprintf("SUP-%04d", seq),
		Name:         fmt.Sprintf("Supplier %d", seq),
		ItemName:     fmt.Sprintf("Item %03d", seq),
		UnitPrice:    decimal.NewFromFloat(10.00),
		LeadTimeDays: 3,
		Reliability:  90,
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// WithSupplierName sets the supplier name
func WithSupplierName(name string) func(*SupplierFixture) {
	return func(s *SupplierFixture) {
		s.Name = name
	}
}

// WithSupplierItem sets the item the supplier offers
func WithSupplierItem(item string) func(*SupplierFixture) {
	return func(s *SupplierFixture) {
		s.ItemName = item
	}
}

// WithUnitPrice sets the supplier unit price
func WithUnitPrice(price float64) func(*SupplierFixture) {
	return func(s *SupplierFixture) {
		s.UnitPrice = decimal.NewFromFloat(price)
	}
}

// WithLeadTime sets the supplier lead time in days
func WithLeadTime(days int) func(*SupplierFixture) {
	return func(s *SupplierFixture) {
		s.LeadTimeDays = days
	}
}

// WithReliability sets the supplier reliability score
func WithReliability(score float64) func(*SupplierFixture) {
	return func(s *SupplierFixture) {
		s.Reliability = score
	}
}

// DefaultTestSuppliers returns a set of suppliers for one item that covers
// the interesting matcher cases: reliable but slow, fast but flaky, cheap.
func DefaultTestSuppliers(factory *FixtureFactory, item string) []SupplierFixture {
	return []SupplierFixture{
		factory.Supplier(WithSupplierItem(item), WithSupplierName("MedSupply Nord"), WithReliability(95), WithLeadTime(3), WithUnitPrice(12.00)),
		factory.Supplier(WithSupplierItem(item), WithSupplierName("QuickPharm Express"), WithReliability(85), WithLeadTime(1), WithUnitPrice(12.00)),
		factory.Supplier(WithSupplierItem(item), WithSupplierName("BudgetMed Direct"), WithReliability(80), WithLeadTime(7), WithUnitPrice(9.50)),
	}
}

// Date truncates a time to its calendar date in UTC
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
