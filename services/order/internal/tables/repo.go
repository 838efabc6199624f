package tables

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionClosed is returned when attaching to a session that has closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionHeld is returned when attaching to a session being billed.
	ErrSessionHeld = errors.New("session held for billing")
)

type TableRepo interface {
	Create(ctx context.Context, table *Table) error
	Get(ctx context.Context, id uuid.UUID) (*Table, error)
	GetByNumber(ctx context.Context, number string) (*Table, error)
	List(ctx context.Context) ([]*Table, error)
	// Claim points the table at sessionID only if no session is set.
	Claim(ctx context.Context, tableID, sessionID uuid.UUID) (bool, error)
	// Release clears the table only if it still points at sessionID.
	Release(ctx context.Context, tableID, sessionID uuid.UUID) (bool, error)
}

type SessionRepo interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// AttachOrder appends orderID to an open, unheld session and returns the result.
	AttachOrder(ctx context.Context, sessionID, orderID uuid.UUID) (*Session, error)
	DetachOrder(ctx context.Context, sessionID, orderID uuid.UUID) error
	// Hold sets holdID on an open session that has no hold, or whose hold
	// was placed before staleBefore. It returns nil when the session is
	// closed or held by someone else.
	Hold(ctx context.Context, sessionID, holdID uuid.UUID, at, staleBefore time.Time) (*Session, error)
	// Unhold clears the hold only if it is still holdID.
	Unhold(ctx context.Context, sessionID, holdID uuid.UUID) error
	// Close stamps closedAt only if the session is still open.
	Close(ctx context.Context, sessionID uuid.UUID, billID *uuid.UUID, closedAt time.Time) (bool, error)
}
