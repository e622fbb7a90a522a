package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routing keys double as event type names, so a consumer's binding
// pattern selects by type prefix.
const (
	// Ingestion events
	EventMovementsIngested = "movements.batch.ingested"

	// Pipeline refresh events
	EventRefreshCompleted = "pipeline.refresh.completed"
	EventRefreshFailed    = "pipeline.refresh.failed"

	// Alert events
	EventAlertsGenerated   = "alerts.batch.generated"
	EventAlertAcknowledged = "alerts.alert.acknowledged"

	// Data quality events
	EventQualityScanCompleted = "quality.scan.completed"

	// Procurement events
	EventPurchaseOrdersReplaced = "reorders.purchase_orders.replaced"
)

// ExchangePipelineEvents is the single topic exchange all pipeline
// services publish on.
const ExchangePipelineEvents = "pipeline.events"

// Event is the envelope every message on the exchange shares; Data
// holds the type-specific payload.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in a stamped envelope.
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData decodes the payload into v.
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Ingestion Events

// MovementsIngestedEvent is published after a movement batch is stored
type MovementsIngestedEvent struct {
	Source   string `json:"source"` // "api", "csv" or a caller-supplied feed name
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
	Rejected int    `json:"rejected"`
}

// Pipeline Events

// RefreshCompletedEvent is published when a pipeline refresh run finishes
type RefreshCompletedEvent struct {
	RunID      string         `json:"run_id"`
	Task       string         `json:"task"`
	DurationMS int64          `json:"duration_ms"`
	Counts     map[string]int `json:"counts,omitempty"`
}

// RefreshFailedEvent is published when a pipeline refresh run fails
type RefreshFailedEvent struct {
	RunID string `json:"run_id"`
	Task  string `json:"task"`
	Error string `json:"error"`
}

// Alert Events

// AlertPayload is one alert inside an AlertsGeneratedEvent batch. It
// carries everything a delivery channel needs to format the
// notification without a database round trip.
type AlertPayload struct {
	Location       string   `json:"location"`
	ItemName       string   `json:"item_name"`
	Severity       string   `json:"severity"`
	Message        string   `json:"message"`
	DaysLeft       *float64 `json:"days_left"`
	RecommendedQty float64  `json:"recommended_qty"`
}

// AlertsGeneratedEvent is published after an alert dispatch cycle.
// Suppressed counts candidates dropped because an unacknowledged alert
// of the same type already existed for the location and item.
type AlertsGeneratedEvent struct {
	Mode        string         `json:"mode"` // "immediate" or "daily"
	Created     int            `json:"created"`
	Suppressed  int            `json:"suppressed"`
	ByType      map[string]int `json:"by_type,omitempty"`
	Alerts      []AlertPayload `json:"alerts"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// AlertAcknowledgedEvent is published when an alert is acknowledged
type AlertAcknowledgedEvent struct {
	AlertID   int64  `json:"alert_id"`
	AlertType string `json:"alert_type"`
	Location  string `json:"location"`
	ItemName  string `json:"item_name"`
}

// Data Quality Events

// QualityScanCompletedEvent is published when a quality scan finishes
type QualityScanCompletedEvent struct {
	RunID      string         `json:"run_id"`
	Findings   int            `json:"findings"`
	BySeverity map[string]int `json:"by_severity,omitempty"`
}

// Procurement Events

// PurchaseOrdersReplacedEvent is published after the supplier matcher
// replaces the purchase order plan
type PurchaseOrdersReplacedEvent struct {
	Orders       int             `json:"orders"`
	UrgentOrders int             `json:"urgent_orders"`
	TotalCost    decimal.Decimal `json:"total_cost"`
}
