package tables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
	"github.com/appetiteclub/tableside/services/order/internal/sequence"
)

const (
	claimAttempts = 5
	// billingHoldTTL bounds how long a crashed billing call blocks a session.
	billingHoldTTL = time.Minute
)

// NumberSource allocates session numbers.
type NumberSource interface {
	Next(ctx context.Context, kind sequence.Kind) (string, error)
}

// Coordinator owns table occupancy. It is the only writer of a table's
// current session, and it keeps at most one open session per table.
type Coordinator struct {
	tables    TableRepo
	sessions  SessionRepo
	numbers   NumberSource
	publisher events.Publisher
	logger    apt.Logger
	holdTTL   time.Duration
	now       func() time.Time
}

func NewCoordinator(tables TableRepo, sessions SessionRepo, numbers NumberSource, publisher events.Publisher, logger apt.Logger) *Coordinator {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Coordinator{
		tables:    tables,
		sessions:  sessions,
		numbers:   numbers,
		publisher: publisher,
		logger:    logger,
		holdTTL:   billingHoldTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Table returns the table with the given number.
func (c *Coordinator) Table(ctx context.Context, number string) (*Table, error) {
	table, err := c.tables.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("cannot get table %s: %w", number, err)
	}
	if table == nil {
		return nil, fault.NotFound("table %s not found", number)
	}
	return table, nil
}

// Tables lists every table.
func (c *Coordinator) Tables(ctx context.Context) ([]*Table, error) {
	tables, err := c.tables.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	return tables, nil
}

// Session returns the session with the given id.
func (c *Coordinator) Session(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := c.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot get session: %w", err)
	}
	if session == nil {
		return nil, fault.NotFound("session %s not found", id)
	}
	return session, nil
}

// OpenSession returns the table's open session, if any.
func (c *Coordinator) OpenSession(ctx context.Context, table *Table) (*Session, error) {
	if table.CurrentSessionID == nil {
		return nil, nil
	}
	session, err := c.sessions.Get(ctx, *table.CurrentSessionID)
	if err != nil {
		return nil, fmt.Errorf("cannot get session: %w", err)
	}
	if session == nil || !session.IsOpen() {
		return nil, nil
	}
	return session, nil
}

// GetOrOpenSession returns the open session of the table, opening one if
// the table is vacant. Concurrent callers on a vacant table all receive
// the same session: the table claim is a compare-and-set and the loser
// drops the session it prepared.
func (c *Coordinator) GetOrOpenSession(ctx context.Context, tableNumber string) (*Session, error) {
	table, err := c.Table(ctx, tableNumber)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < claimAttempts; attempt++ {
		if table.CurrentSessionID != nil {
			session, err := c.sessions.Get(ctx, *table.CurrentSessionID)
			if err != nil {
				return nil, fmt.Errorf("cannot get session: %w", err)
			}
			if session != nil && session.IsOpen() {
				return session, nil
			}
			if session != nil {
				// Closed session still referenced: a close that did not finish releasing.
				c.release(ctx, table, session)
			}
		} else {
			session, won, err := c.claim(ctx, table)
			if err != nil {
				return nil, err
			}
			if won {
				return session, nil
			}
		}

		table, err = c.Table(ctx, tableNumber)
		if err != nil {
			return nil, err
		}
	}

	return nil, fault.Conflict("table %s is changing, retry", tableNumber)
}

func (c *Coordinator) claim(ctx context.Context, table *Table) (*Session, bool, error) {
	number, err := c.numbers.Next(ctx, sequence.KindSession)
	if err != nil {
		return nil, false, err
	}

	session := NewSession(table, number)
	if err := c.sessions.Create(ctx, session); err != nil {
		return nil, false, fmt.Errorf("cannot create session: %w", err)
	}

	won, err := c.tables.Claim(ctx, table.ID, session.ID)
	if err != nil {
		if derr := c.sessions.Delete(ctx, session.ID); derr != nil {
			c.logger.Error("cannot discard unclaimed session", "session_id", session.ID.String(), "error", derr)
		}
		return nil, false, fmt.Errorf("cannot claim table %s: %w", table.Number, err)
	}
	if !won {
		if err := c.sessions.Delete(ctx, session.ID); err != nil {
			c.logger.Error("cannot discard losing session", "session_id", session.ID.String(), "error", err)
		}
		c.logger.Debug("table claimed concurrently", "table", table.Number)
		return nil, false, nil
	}

	c.logger.Info("session opened", "table", table.Number, "session", session.Number)
	c.publishStatus(ctx, table, StatusOccupied, StatusAvailable, session)
	return session, true, nil
}

// AttachOrder appends orderID to the session and returns the updated session.
func (c *Coordinator) AttachOrder(ctx context.Context, sessionID, orderID uuid.UUID) (*Session, error) {
	session, err := c.sessions.AttachOrder(ctx, sessionID, orderID)
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return nil, fault.Conflict("session already closed")
		}
		if errors.Is(err, ErrSessionHeld) {
			return nil, fault.Conflict("table is being billed, retry after the bill")
		}
		return nil, fmt.Errorf("cannot attach order to session: %w", err)
	}
	return session, nil
}

// DetachOrder undoes AttachOrder when the order could not be stored.
func (c *Coordinator) DetachOrder(ctx context.Context, sessionID, orderID uuid.UUID) error {
	if err := c.sessions.DetachOrder(ctx, sessionID, orderID); err != nil {
		return fmt.Errorf("cannot detach order from session: %w", err)
	}
	return nil
}

// HoldForBilling stops orders from joining the session until the hold is
// released or the session closes. The returned session carries the final
// order list. A hold older than the hold TTL is taken over.
func (c *Coordinator) HoldForBilling(ctx context.Context, sessionID, holdID uuid.UUID) (*Session, error) {
	now := c.now()
	session, err := c.sessions.Hold(ctx, sessionID, holdID, now, now.Add(-c.holdTTL))
	if err != nil {
		return nil, fmt.Errorf("cannot hold session for billing: %w", err)
	}
	if session != nil {
		return session, nil
	}

	current, err := c.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !current.IsOpen() {
		return nil, fault.Conflict("session %s already closed", current.Number)
	}
	return nil, fault.Conflict("table %s is already being billed", current.TableNumber)
}

// ReleaseBillingHold lets orders join the session again.
func (c *Coordinator) ReleaseBillingHold(ctx context.Context, sessionID, holdID uuid.UUID) {
	if err := c.sessions.Unhold(ctx, sessionID, holdID); err != nil {
		c.logger.Error("cannot release billing hold", "session_id", sessionID.String(), "error", err)
	}
}

// CloseSession closes the session and releases its table, reporting
// whether the table no longer points at the session. Billing is the only
// caller. Closing an already closed session only retries the release.
func (c *Coordinator) CloseSession(ctx context.Context, sessionID uuid.UUID, billID *uuid.UUID) (bool, error) {
	session, err := c.Session(ctx, sessionID)
	if err != nil {
		return false, err
	}

	if session.IsOpen() {
		if _, err := c.sessions.Close(ctx, sessionID, billID, c.now()); err != nil {
			return false, fmt.Errorf("cannot close session: %w", err)
		}
	}

	table, err := c.tables.Get(ctx, session.TableID)
	if err != nil {
		return false, fmt.Errorf("cannot get table: %w", err)
	}
	if table == nil {
		return false, fault.NotFound("table of session %s not found", session.Number)
	}

	return c.release(ctx, table, session), nil
}

// release frees the table if it still points at session and reports
// whether the table is free of it afterwards.
func (c *Coordinator) release(ctx context.Context, table *Table, session *Session) bool {
	if table.CurrentSessionID == nil || *table.CurrentSessionID != session.ID {
		return true
	}
	released, err := c.tables.Release(ctx, table.ID, session.ID)
	if err != nil {
		c.logger.Error("cannot release table", "table", table.Number, "error", err)
		return false
	}
	if released {
		c.logger.Info("table released", "table", table.Number, "session", session.Number)
		c.publishStatus(ctx, table, StatusAvailable, StatusOccupied, session)
		return true
	}

	current, err := c.tables.Get(ctx, table.ID)
	if err != nil || current == nil {
		return false
	}
	return current.CurrentSessionID == nil || *current.CurrentSessionID != session.ID
}

func (c *Coordinator) publishStatus(ctx context.Context, table *Table, status, previous string, session *Session) {
	evt := event.TableStatusEvent{
		EventType:      event.EventTableStatusChanged,
		TableID:        table.ID.String(),
		TableNumber:    table.Number,
		Status:         status,
		PreviousStatus: previous,
		SessionID:      session.ID.String(),
		SessionNumber:  session.Number,
		OccurredAt:     c.now(),
	}
	if err := event.Publish(ctx, c.publisher, event.TableStatusTopic, evt); err != nil {
		c.logger.Error("cannot publish table status", "table", table.Number, "error", err)
	}
}
