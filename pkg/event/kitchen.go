package event

import "time"

const (
	KitchenTicketsTopic           = "kitchen.tickets"
	EventKitchenTicketCreated     = "kitchen.ticket.created"
	EventKitchenTicketStageChange = "kitchen.ticket.stage_changed"
)

type KitchenTicketEventMetadata struct {
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	TicketID    string    `json:"ticket_id"`
	TicketNo    string    `json:"ticket_number"`
	OrderID     string    `json:"order_id"`
	TableNumber string    `json:"table_number,omitempty"`
}

type KitchenTicketCreatedEvent struct {
	KitchenTicketEventMetadata
	Stage         string `json:"stage"`
	Lines         int    `json:"lines"`
	Supplementary bool   `json:"supplementary"`
	ParentOrderID string `json:"parent_order_id,omitempty"`
}

type KitchenTicketStageChangedEvent struct {
	KitchenTicketEventMetadata
	NewStage      string `json:"new_stage"`
	PreviousStage string `json:"previous_stage"`
	Actor         string `json:"actor,omitempty"`
}
