package event

import "time"

const (
	// TableStatusTopic delivers authoritative occupancy changes for tables.
	TableStatusTopic = "tables.status"
	// EventTableStatusChanged identifies a table status change event payload.
	EventTableStatusChanged = "table.status.changed"
)

// TableStatusEvent is emitted whenever a session opens or closes on a table.
type TableStatusEvent struct {
	EventType      string    `json:"event_type"`
	TableID        string    `json:"table_id"`
	TableNumber    string    `json:"table_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	SessionNumber  string    `json:"session_number,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
