package kitchen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/pkg/enums/cookstage"
	"github.com/appetiteclub/tableside/pkg/enums/role"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
	"github.com/appetiteclub/tableside/services/order/internal/order"
)

// OrderTransitioner is the order lifecycle as seen from the kitchen.
type OrderTransitioner interface {
	Transition(ctx context.Context, id uuid.UUID, target order.Status, actor role.Role, reason string) (*order.Order, error)
}

const stageAttempts = 3

// stageStatus maps each cook stage the kitchen can request to the order
// status it implies.
var stageStatus = map[string]order.Status{
	cookstage.Stages.Cooking.Name: order.StatusPreparing,
	cookstage.Stages.Ready.Name:   order.StatusReady,
}

// statusStage is the cook stage a ticket must have reached once its order
// is in the given status.
var statusStage = map[order.Status]cookstage.Stage{
	order.StatusPreparing: cookstage.Stages.Cooking,
	order.StatusReady:     cookstage.Stages.Ready,
	order.StatusServed:    cookstage.Stages.Ready,
	order.StatusRejected:  cookstage.Stages.Cancelled,
}

// Dispatcher derives tickets from confirmed orders and moves them through
// the cook stages.
type Dispatcher struct {
	repo       TicketRepo
	orders     OrderTransitioner
	publisher  events.Publisher
	logger     apt.Logger
	thresholds Thresholds
	now        func() time.Time
}

func NewDispatcher(repo TicketRepo, orders OrderTransitioner, publisher events.Publisher, thresholds Thresholds, logger apt.Logger) *Dispatcher {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if !thresholds.Valid() {
		thresholds = DefaultThresholds
	}
	return &Dispatcher{
		repo:       repo,
		orders:     orders,
		publisher:  publisher,
		logger:     logger,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// OrderStatusChanged satisfies order.StatusListener. A confirmed order gets
// its ticket; later statuses pull the ticket forward to the matching stage
// and a rejected order cancels it.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, o *order.Order, actor role.Role) error {
	if o.Status == order.StatusConfirmed {
		_, err := d.Derive(ctx, o)
		return err
	}

	target, ok := statusStage[o.Status]
	if !ok {
		return nil
	}

	var t *Ticket
	var err error
	if target.Terminal() {
		t, err = d.repo.GetByOrder(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("cannot get ticket for order %s: %w", o.Number, err)
		}
		if t == nil {
			return nil
		}
	} else if t, err = d.Derive(ctx, o); err != nil {
		return err
	}

	_, err = d.moveTo(ctx, t, target, actor)
	return err
}

// Derive returns the order's ticket, creating it on first call.
func (d *Dispatcher) Derive(ctx context.Context, o *order.Order) (*Ticket, error) {
	existing, err := d.repo.GetByOrder(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("cannot get ticket for order %s: %w", o.Number, err)
	}
	if existing != nil {
		return existing, nil
	}

	t := DeriveTicket(o)
	now := d.now()
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := d.repo.Create(ctx, t); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return d.repo.GetByOrder(ctx, o.ID)
		}
		return nil, fmt.Errorf("cannot create ticket for order %s: %w", o.Number, err)
	}

	d.logger.Info("ticket created", "ticket", t.Number, "table", t.TableNumber, "merge", t.MergeIntoTableQueue)

	evt := event.KitchenTicketCreatedEvent{
		KitchenTicketEventMetadata: d.metadata(event.EventKitchenTicketCreated, t),
		Stage:                      t.Stage,
		Lines:                      len(t.Lines),
		Supplementary:              t.MergeIntoTableQueue,
	}
	if t.ParentOrderID != nil {
		evt.ParentOrderID = t.ParentOrderID.String()
	}
	d.publish(ctx, t, evt)
	return t, nil
}

// Ticket returns the ticket with the given id.
func (d *Dispatcher) Ticket(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	t, err := d.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot get ticket: %w", err)
	}
	if t == nil {
		return nil, fault.NotFound("ticket %s not found", id)
	}
	return t, nil
}

// Advance asks the order lifecycle for the status implied by stage and,
// once it is accepted, moves the ticket. A rejected order transition leaves
// the ticket untouched.
func (d *Dispatcher) Advance(ctx context.Context, id uuid.UUID, stage string, actor role.Role) (*Ticket, error) {
	target := cookstage.ByName(stage)
	if target == nil {
		return nil, fault.InvalidInput("unknown stage %q", stage).WithDetail("stage", "invalid", "stage must be cooking or ready")
	}
	status, ok := stageStatus[target.Name]
	if !ok {
		return nil, fault.InvalidInput("tickets cannot move to %s", target.Name).WithDetail("stage", "invalid", "stage must be cooking or ready")
	}

	t, err := d.Ticket(ctx, id)
	if err != nil {
		return nil, err
	}

	current := t.StageValue()
	if current.Terminal() {
		return nil, fault.Conflict("ticket %s is %s", t.Number, current.Name)
	}
	if current.Name == target.Name {
		return nil, fault.Conflict("ticket already marked %s", target.Name)
	}
	if !target.Next(current) {
		return nil, fault.Conflict("ticket is %s, cannot move to %s", current.Name, target.Name)
	}

	if _, err := d.orders.Transition(ctx, t.OrderID, status, actor, ""); err != nil {
		return nil, err
	}

	return d.moveTo(ctx, t, *target, actor)
}

// moveTo brings the ticket forward to target. A ticket already at or past
// target is returned as it is stored.
func (d *Dispatcher) moveTo(ctx context.Context, t *Ticket, target cookstage.Stage, actor role.Role) (*Ticket, error) {
	for attempt := 0; attempt < stageAttempts; attempt++ {
		current := t.StageValue()
		if current.Terminal() || current.Order >= target.Order {
			return t, nil
		}

		moved, err := d.repo.UpdateStage(ctx, t.ID, current.Name, target.Name, d.now())
		if err != nil {
			return nil, fmt.Errorf("cannot update ticket %s: %w", t.Number, err)
		}

		refreshed, err := d.Ticket(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if !moved {
			t = refreshed
			continue
		}

		d.logger.Info("ticket stage changed", "ticket", t.Number, "from", current.Name, "to", target.Name)
		d.publish(ctx, refreshed, event.KitchenTicketStageChangedEvent{
			KitchenTicketEventMetadata: d.metadata(event.EventKitchenTicketStageChange, refreshed),
			NewStage:                   target.Name,
			PreviousStage:              current.Name,
			Actor:                      actor.Name,
		})
		return refreshed, nil
	}

	return nil, fault.Conflict("ticket %s changed concurrently", t.Number)
}

// Reprint counts another print of the ticket and returns it.
func (d *Dispatcher) Reprint(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	t, err := d.repo.IncrementReprint(ctx, id, d.now())
	if err != nil {
		return nil, fmt.Errorf("cannot count reprint: %w", err)
	}
	if t == nil {
		return nil, fault.NotFound("ticket %s not found", id)
	}
	d.logger.Info("ticket reprinted", "ticket", t.Number, "count", t.ReprintCount)
	return t, nil
}

// Board returns the tickets matching filter with urgency computed at now.
// Without a stage filter only active tickets are listed.
func (d *Dispatcher) Board(ctx context.Context, filter TicketFilter) ([]TicketView, error) {
	if len(filter.Stages) == 0 {
		for _, s := range cookstage.Active {
			filter.Stages = append(filter.Stages, s.Name)
		}
	}
	tickets, err := d.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot list tickets: %w", err)
	}
	now := d.now()
	views := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, d.view(t, now))
	}
	return views, nil
}

// View wraps a single ticket with its urgency at now.
func (d *Dispatcher) View(t *Ticket) TicketView {
	return d.view(t, d.now())
}

// TicketView is a ticket as shown on the kitchen board.
type TicketView struct {
	*Ticket
	Urgency        Urgency `json:"urgency"`
	ElapsedSeconds int64   `json:"elapsed_seconds"`
}

func (d *Dispatcher) view(t *Ticket, now time.Time) TicketView {
	return TicketView{
		Ticket:         t,
		Urgency:        d.thresholds.At(now, t.ConfirmedAt),
		ElapsedSeconds: int64(now.Sub(t.ConfirmedAt) / time.Second),
	}
}

func (d *Dispatcher) metadata(eventType string, t *Ticket) event.KitchenTicketEventMetadata {
	return event.KitchenTicketEventMetadata{
		EventType:   eventType,
		OccurredAt:  d.now(),
		TicketID:    t.ID.String(),
		TicketNo:    t.Number,
		OrderID:     t.OrderID.String(),
		TableNumber: t.TableNumber,
	}
}

func (d *Dispatcher) publish(ctx context.Context, t *Ticket, evt any) {
	if err := event.Publish(ctx, d.publisher, event.KitchenTicketsTopic, evt); err != nil {
		d.logger.Error("cannot publish ticket event", "ticket", t.Number, "error", err)
	}
}
