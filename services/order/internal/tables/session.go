package tables

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// Session is one continuous dining visit at a table. It is open while
// ClosedAt is nil.
type Session struct {
	ID          uuid.UUID   `json:"id" bson:"_id"`
	Number      string      `json:"number" bson:"number"`
	TableID     uuid.UUID   `json:"table_id" bson:"table_id"`
	TableNumber string      `json:"table_number" bson:"table_number"`
	OrderIDs    []uuid.UUID `json:"order_ids" bson:"order_ids"`
	BillID      *uuid.UUID  `json:"bill_id,omitempty" bson:"bill_id,omitempty"`
	OpenedAt    time.Time   `json:"opened_at" bson:"opened_at"`
	ClosedAt    *time.Time  `json:"closed_at" bson:"closed_at"`
	// BillingHold is set while a bill is drafted. No order joins a held session.
	BillingHold   *uuid.UUID `json:"billing_hold,omitempty" bson:"billing_hold,omitempty"`
	BillingHeldAt *time.Time `json:"billing_held_at,omitempty" bson:"billing_held_at,omitempty"`
}

func (s *Session) GetID() uuid.UUID {
	return s.ID
}

func (s *Session) ResourceType() string {
	return "session"
}

func NewSession(table *Table, number string) *Session {
	return &Session{
		ID:          apt.GenerateNewID(),
		Number:      number,
		TableID:     table.ID,
		TableNumber: table.Number,
		OrderIDs:    []uuid.UUID{},
		OpenedAt:    time.Now().UTC(),
	}
}

func (s *Session) IsOpen() bool {
	return s.ClosedAt == nil
}

func (s *Session) IsHeld() bool {
	return s.BillingHold != nil
}

// Position returns the index of orderID within the session, or -1.
func (s *Session) Position(orderID uuid.UUID) int {
	for i, id := range s.OrderIDs {
		if id == orderID {
			return i
		}
	}
	return -1
}
