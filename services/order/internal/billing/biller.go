package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
	"github.com/appetiteclub/tableside/services/order/internal/money"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/appetiteclub/tableside/services/order/internal/sequence"
	"github.com/appetiteclub/tableside/services/order/internal/tables"
)

type Orders interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*order.Order, error)
	Complete(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

type Coordinator interface {
	Table(ctx context.Context, number string) (*tables.Table, error)
	Session(ctx context.Context, id uuid.UUID) (*tables.Session, error)
	OpenSession(ctx context.Context, table *tables.Table) (*tables.Session, error)
	HoldForBilling(ctx context.Context, sessionID, holdID uuid.UUID) (*tables.Session, error)
	ReleaseBillingHold(ctx context.Context, sessionID, holdID uuid.UUID)
	CloseSession(ctx context.Context, sessionID uuid.UUID, billID *uuid.UUID) (bool, error)
}

type NumberSource interface {
	Next(ctx context.Context, kind sequence.Kind) (string, error)
}

// Request asks for a session to be billed. Exactly one of SessionID and
// TableNumber identifies it. IsAC defaults to the table's zone.
type Request struct {
	SessionID       *uuid.UUID      `json:"session_id,omitempty"`
	TableNumber     string          `json:"table_number,omitempty"`
	IsAC            *bool           `json:"is_ac,omitempty"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Payment
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Comments      string `json:"comments,omitempty"`
}

// Result is a bill together with the effects of producing it.
type Result struct {
	*Bill
	CompletedOrders []string `json:"completed_orders"`
	TableReleased   bool     `json:"table_released"`
}

type BillerDeps struct {
	Repo        Repo
	Orders      Orders
	Coordinator Coordinator
	Numbers     NumberSource
	Calculator  Calculator
	Publisher   events.Publisher
	Logger      apt.Logger
}

type Biller struct {
	repo        Repo
	orders      Orders
	coordinator Coordinator
	numbers     NumberSource
	calc        Calculator
	publisher   events.Publisher
	logger      apt.Logger
	now         func() time.Time
}

func NewBiller(deps BillerDeps) *Biller {
	logger := deps.Logger
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	calc := deps.Calculator
	if calc.ACRate.IsZero() && calc.SplitTolerance.IsZero() {
		calc = NewCalculator()
	}
	return &Biller{
		repo:        deps.Repo,
		orders:      deps.Orders,
		coordinator: deps.Coordinator,
		numbers:     deps.Numbers,
		calc:        calc,
		publisher:   deps.Publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the bill with the given id.
func (b *Biller) Get(ctx context.Context, id uuid.UUID) (*Bill, error) {
	bill, err := b.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot get bill: %w", err)
	}
	if bill == nil {
		return nil, fault.NotFound("bill %s not found", id)
	}
	return bill, nil
}

// ComputeBill bills every served order of the session, completes them and
// releases the table. The session is held while the bill is drafted so no
// order joins it unbilled. Calling it again for a billed session finishes
// any step a previous call left undone and returns the same bill.
func (b *Biller) ComputeBill(ctx context.Context, req Request) (*Result, error) {
	session, err := b.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	existing, err := b.repo.GetBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("cannot get session bill: %w", err)
	}
	if existing != nil {
		b.logger.Info("session already billed, resuming", "session", session.Number, "bill", existing.Number)
		return b.settle(ctx, existing)
	}

	holdID := apt.GenerateNewID()
	held, err := b.coordinator.HoldForBilling(ctx, session.ID, holdID)
	if err != nil {
		if fault.Is(err, fault.KindConflict) {
			if billed, gerr := b.repo.GetBySession(ctx, session.ID); gerr == nil && billed != nil {
				return b.settle(ctx, billed)
			}
		}
		return nil, err
	}

	bill, err := b.draft(ctx, held, req)
	if err != nil {
		b.coordinator.ReleaseBillingHold(ctx, held.ID, holdID)
		return nil, err
	}

	if err := b.repo.Create(ctx, bill); err != nil {
		winner, gerr := b.repo.GetBySession(ctx, session.ID)
		if gerr != nil || winner == nil {
			b.coordinator.ReleaseBillingHold(ctx, held.ID, holdID)
			return nil, fmt.Errorf("cannot store bill: %w", err)
		}
		b.logger.Info("session billed concurrently", "session", session.Number, "bill", winner.Number)
		return b.settle(ctx, winner)
	}

	b.logger.Info("bill created", "bill", bill.Number, "table", bill.TableNumber, "total", money.Format(bill.Total))

	result, err := b.settle(ctx, bill)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, bill)
	return result, nil
}

// draft prices the held session. Every order attached to the session must
// be stored; one that is not is still being placed.
func (b *Biller) draft(ctx context.Context, session *tables.Session, req Request) (*Bill, error) {
	orders, err := b.orders.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	listed := make(map[uuid.UUID]bool, len(orders))
	for _, o := range orders {
		listed[o.ID] = true
	}
	for _, id := range session.OrderIDs {
		if !listed[id] {
			return nil, fault.Conflict("an order on table %s is still being placed, retry", session.TableNumber).
				WithDetail("orders", "pending_create", id.String())
		}
	}

	billable, err := billableOrders(orders)
	if err != nil {
		return nil, err
	}

	table, err := b.coordinator.Table(ctx, session.TableNumber)
	if err != nil {
		return nil, err
	}
	isAC := table.IsAC()
	if req.IsAC != nil {
		isAC = *req.IsAC
	}

	lines := MergeLines(billable)
	totals, err := b.calc.Compute(lines, Options{IsAC: isAC, DiscountPercent: req.DiscountPercent, Payment: req.Payment})
	if err != nil {
		return nil, err
	}

	number, err := b.numbers.Next(ctx, sequence.KindBill)
	if err != nil {
		return nil, fmt.Errorf("cannot allocate bill number: %w", err)
	}

	bill := &Bill{
		ID:              apt.GenerateNewID(),
		Number:          number,
		SessionID:       session.ID,
		SessionNumber:   session.Number,
		TableID:         session.TableID,
		TableNumber:     session.TableNumber,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		Lines:           lines,
		IsAC:            isAC,
		Subtotal:        totals.Subtotal,
		ACCharge:        totals.ACCharge,
		DiscountPercent: totals.DiscountPercent,
		DiscountAmount:  totals.DiscountAmount,
		Total:           totals.Total,
		PaymentMode:     totals.PaymentMode.Name,
		CashAmount:      totals.CashAmount,
		OnlineAmount:    totals.OnlineAmount,
		Comments:        strings.TrimSpace(req.Comments),
		CreatedAt:       b.now(),
	}
	if bill.CustomerName == "" {
		bill.CustomerName = billable[0].CustomerName
	}
	if bill.CustomerPhone == "" {
		bill.CustomerPhone = billable[0].CustomerPhone
	}
	for _, o := range billable {
		bill.OrderIDs = append(bill.OrderIDs, o.ID)
	}
	return bill, nil
}

func (b *Biller) resolveSession(ctx context.Context, req Request) (*tables.Session, error) {
	number := strings.TrimSpace(req.TableNumber)
	switch {
	case req.SessionID != nil && number != "":
		return nil, fault.InvalidInput("give either session_id or table_number, not both")
	case req.SessionID != nil:
		return b.coordinator.Session(ctx, *req.SessionID)
	case number != "":
		table, err := b.coordinator.Table(ctx, number)
		if err != nil {
			return nil, err
		}
		session, err := b.coordinator.OpenSession(ctx, table)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, fault.NotFound("table %s has no open session", number)
		}
		return session, nil
	default:
		return nil, fault.InvalidInput("session_id or table_number is required").
			WithDetail("table_number", "required", "session_id or table_number is required")
	}
}

// billableOrders drops rejected orders and requires the rest to be served.
// Completed orders are accepted so an interrupted settlement can resume.
func billableOrders(orders []*order.Order) ([]*order.Order, error) {
	var billable []*order.Order
	var blocking []string
	for _, o := range orders {
		switch o.Status {
		case order.StatusRejected:
			continue
		case order.StatusServed, order.StatusCompleted:
			billable = append(billable, o)
		default:
			blocking = append(blocking, fmt.Sprintf("%s (%s)", o.Number, o.Status))
		}
	}
	if len(blocking) > 0 {
		err := fault.Conflict("orders not yet served: %s", strings.Join(blocking, ", "))
		for _, o := range orders {
			if o.Status != order.StatusRejected && o.Status != order.StatusServed && o.Status != order.StatusCompleted {
				err.WithDetail("orders", string(o.Status), o.Number)
			}
		}
		return nil, err
	}
	if len(billable) == 0 {
		return nil, fault.InvalidInput("no billable orders")
	}
	return billable, nil
}

// settle completes the bill's orders and closes its session. Every step is
// idempotent.
func (b *Biller) settle(ctx context.Context, bill *Bill) (*Result, error) {
	completed := make([]string, 0, len(bill.OrderIDs))
	for _, id := range bill.OrderIDs {
		o, err := b.orders.Complete(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("cannot complete order %s for bill %s: %w", id, bill.Number, err)
		}
		completed = append(completed, o.Number)
	}

	id := bill.ID
	released, err := b.coordinator.CloseSession(ctx, bill.SessionID, &id)
	if err != nil {
		return nil, fmt.Errorf("cannot close session for bill %s: %w", bill.Number, err)
	}
	if !released {
		b.logger.Error("table not released after billing", "bill", bill.Number, "table", bill.TableNumber)
	}

	return &Result{Bill: bill, CompletedOrders: completed, TableReleased: released}, nil
}

func (b *Biller) publish(ctx context.Context, bill *Bill) {
	ids := make([]string, 0, len(bill.OrderIDs))
	for _, id := range bill.OrderIDs {
		ids = append(ids, id.String())
	}
	evt := event.BillClosedEvent{
		EventType:    event.EventBillClosed,
		OccurredAt:   b.now(),
		BillID:       bill.ID.String(),
		BillNumber:   bill.Number,
		SessionID:    bill.SessionID.String(),
		TableNumber:  bill.TableNumber,
		OrderIDs:     ids,
		Subtotal:     money.Format(bill.Subtotal),
		ACCharge:     money.Format(bill.ACCharge),
		Discount:     money.Format(bill.DiscountAmount),
		Total:        money.Format(bill.Total),
		PaymentMode:  bill.PaymentMode,
		CashAmount:   money.Format(bill.CashAmount),
		OnlineAmount: money.Format(bill.OnlineAmount),
	}
	if err := event.Publish(ctx, b.publisher, event.BillsTopic, evt); err != nil {
		b.logger.Error("cannot publish bill", "bill", bill.Number, "error", err)
	}
}
