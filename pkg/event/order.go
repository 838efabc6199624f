package event

import "time"

const (
	OrderLifecycleTopic     = "orders.lifecycle"
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status.changed"
)

// OrderEvent describes a change in an order's lifecycle. Amounts travel as
// decimal strings so consumers never round through float64.
type OrderEvent struct {
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	OrderID        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	SessionID      string    `json:"session_id"`
	TableNumber    string    `json:"table_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Actor          string    `json:"actor,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Supplementary  bool      `json:"supplementary"`
	Total          string    `json:"total,omitempty"`
}
