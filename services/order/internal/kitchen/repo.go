package kitchen

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrDuplicate = errors.New("ticket already exists for order")

type TicketFilter struct {
	Stages      []string
	TableNumber string
	SessionID   *uuid.UUID
}

// TicketRepo stores at most one ticket per order.
type TicketRepo interface {
	Create(ctx context.Context, t *Ticket) error
	Get(ctx context.Context, id uuid.UUID) (*Ticket, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*Ticket, error)
	// List returns tickets oldest confirmation first.
	List(ctx context.Context, filter TicketFilter) ([]*Ticket, error)
	// UpdateStage moves the ticket from stage to next, reporting false when
	// the ticket is no longer at from.
	UpdateStage(ctx context.Context, id uuid.UUID, from, next string, at time.Time) (bool, error)
	IncrementReprint(ctx context.Context, id uuid.UUID, at time.Time) (*Ticket, error)
}
