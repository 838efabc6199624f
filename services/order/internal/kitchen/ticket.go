package kitchen

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/pkg/enums/cookstage"
	"github.com/appetiteclub/tableside/services/order/internal/order"
)

const ticketPrefix = "KOT-"

// TicketLine is what the kitchen needs to cook one order line.
type TicketLine struct {
	LineID         uuid.UUID `bson:"line_id" json:"line_id"`
	MenuItemID     uuid.UUID `bson:"menu_item_id" json:"menu_item_id"`
	Name           string    `bson:"name" json:"name"`
	Category       string    `bson:"category" json:"category"`
	Quantity       int       `bson:"quantity" json:"quantity"`
	Customizations []string  `bson:"customizations,omitempty" json:"customizations,omitempty"`
	Instructions   string    `bson:"instructions,omitempty" json:"instructions,omitempty"`
}

// Ticket is the kitchen order ticket (KOT) derived from a confirmed order.
// Its cook stage moves independently of the order status but only after the
// order accepted the matching transition.
type Ticket struct {
	ID                  uuid.UUID    `bson:"_id" json:"id"`
	Number              string       `bson:"number" json:"number"`
	OrderID             uuid.UUID    `bson:"order_id" json:"order_id"`
	OrderNumber         string       `bson:"order_number" json:"order_number"`
	SessionID           uuid.UUID    `bson:"session_id" json:"session_id"`
	TableNumber         string       `bson:"table_number" json:"table_number"`
	Lines               []TicketLine `bson:"lines" json:"lines"`
	Notes               string       `bson:"notes,omitempty" json:"notes,omitempty"`
	Stage               string       `bson:"stage" json:"stage"`
	MergeIntoTableQueue bool         `bson:"merge_into_table_queue" json:"merge_into_table_queue"`
	ParentOrderID       *uuid.UUID   `bson:"parent_order_id,omitempty" json:"parent_order_id,omitempty"`
	ReprintCount        int          `bson:"reprint_count" json:"reprint_count"`
	ConfirmedAt         time.Time    `bson:"confirmed_at" json:"confirmed_at"`
	StartedAt           *time.Time   `bson:"started_at,omitempty" json:"started_at,omitempty"`
	ReadyAt             *time.Time   `bson:"ready_at,omitempty" json:"ready_at,omitempty"`
	CancelledAt         *time.Time   `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	LastPrintedAt       *time.Time   `bson:"last_printed_at,omitempty" json:"last_printed_at,omitempty"`
	CreatedAt           time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time    `bson:"updated_at" json:"updated_at"`
}

func (t *Ticket) GetID() uuid.UUID {
	return t.ID
}

func (t *Ticket) ResourceType() string {
	return "ticket"
}

// StageValue returns the typed cook stage.
func (t *Ticket) StageValue() cookstage.Stage {
	if s := cookstage.ByName(t.Stage); s != nil {
		return *s
	}
	return cookstage.Stages.New
}

// TicketNumber derives the ticket number from the order number.
func TicketNumber(orderNumber string) string {
	return ticketPrefix + orderNumber
}

// DeriveTicket builds the ticket for a confirmed order. It reads nothing
// but the order, so deriving twice yields the same content.
func DeriveTicket(o *order.Order) *Ticket {
	confirmedAt := o.UpdatedAt
	if o.ConfirmedAt != nil {
		confirmedAt = *o.ConfirmedAt
	}

	lines := make([]TicketLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		tl := TicketLine{
			LineID:       l.ID,
			MenuItemID:   l.MenuItemID,
			Name:         l.Name,
			Category:     l.Category,
			Quantity:     l.Quantity,
			Instructions: l.SpecialInstructions,
		}
		for _, c := range l.Customizations {
			tl.Customizations = append(tl.Customizations, c.Name)
		}
		lines = append(lines, tl)
	}

	t := &Ticket{
		ID:                  apt.GenerateNewID(),
		Number:              TicketNumber(o.Number),
		OrderID:             o.ID,
		OrderNumber:         o.Number,
		SessionID:           o.SessionID,
		TableNumber:         o.TableNumber,
		Lines:               lines,
		Notes:               o.Notes,
		Stage:               cookstage.Stages.New.Name,
		MergeIntoTableQueue: o.Supplementary,
		ConfirmedAt:         confirmedAt,
	}
	if o.ParentOrderID != nil {
		parent := *o.ParentOrderID
		t.ParentOrderID = &parent
	}
	return t
}
