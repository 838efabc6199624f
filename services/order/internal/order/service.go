package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/tableside/pkg/enums/role"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
	"github.com/appetiteclub/tableside/services/order/internal/menu"
	"github.com/appetiteclub/tableside/services/order/internal/money"
	"github.com/appetiteclub/tableside/services/order/internal/sequence"
	"github.com/appetiteclub/tableside/services/order/internal/tables"
)

const defaultCASRetries = 3

// Sessions groups orders into table sessions.
type Sessions interface {
	GetOrOpenSession(ctx context.Context, tableNumber string) (*tables.Session, error)
	AttachOrder(ctx context.Context, sessionID, orderID uuid.UUID) (*tables.Session, error)
	DetachOrder(ctx context.Context, sessionID, orderID uuid.UUID) error
}

type NumberSource interface {
	Next(ctx context.Context, kind sequence.Kind) (string, error)
}

// StatusListener is told about every status an order reaches, with the
// role that moved it. A retried transition notifies it again, so it must
// be idempotent.
type StatusListener interface {
	OrderStatusChanged(ctx context.Context, o *Order, actor role.Role) error
}

type ServiceDeps struct {
	Repo       Repo
	Sessions   Sessions
	Catalog    menu.Catalog
	Numbers    NumberSource
	Publisher  events.Publisher
	Logger     apt.Logger
	CASRetries int
}

type Service struct {
	repo      Repo
	sessions  Sessions
	catalog   menu.Catalog
	numbers   NumberSource
	publisher events.Publisher
	logger    apt.Logger
	retries   int
	listeners []StatusListener
	now       func() time.Time
}

func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	retries := deps.CASRetries
	if retries <= 0 {
		retries = defaultCASRetries
	}
	return &Service{
		repo:      deps.Repo,
		sessions:  deps.Sessions,
		catalog:   deps.Catalog,
		numbers:   deps.Numbers,
		publisher: deps.Publisher,
		logger:    logger,
		retries:   retries,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// OnStatusChange registers l to be notified of status changes.
func (s *Service) OnStatusChange(l StatusListener) {
	s.listeners = append(s.listeners, l)
}

// LineRequest is one requested item of a new order.
type LineRequest struct {
	MenuItemID          uuid.UUID `json:"menu_item_id"`
	Quantity            int       `json:"quantity"`
	Customizations      []string  `json:"customizations,omitempty"`
	SpecialInstructions string    `json:"special_instructions,omitempty"`
}

type CreateRequest struct {
	TableNumber    string          `json:"table_number"`
	Type           Type            `json:"order_type"`
	Items          []LineRequest   `json:"items"`
	TaxPercent     decimal.Decimal `json:"tax_percent"`
	ServicePercent decimal.Decimal `json:"service_percent"`
	Discount       Discount        `json:"discount"`
	Notes          string          `json:"notes,omitempty"`
	CustomerName   string          `json:"customer_name,omitempty"`
	CustomerPhone  string          `json:"customer_phone,omitempty"`
}

func (r CreateRequest) validate() error {
	var errs []apt.ValidationError
	add := func(field, code, msg string) {
		errs = append(errs, apt.ValidationError{Field: field, Code: code, Message: msg})
	}

	if strings.TrimSpace(r.TableNumber) == "" {
		add("table_number", "required", "table number is required")
	}
	if r.Type != "" && !r.Type.Valid() {
		add("order_type", "invalid", "order type must be dine-in, delivery or parcel")
	}
	if len(r.Items) == 0 {
		add("items", "required", "at least one item is required")
	}
	for i, item := range r.Items {
		if item.MenuItemID == uuid.Nil {
			add(fmt.Sprintf("items[%d].menu_item_id", i), "required", "menu item is required")
		}
		if item.Quantity < 1 {
			add(fmt.Sprintf("items[%d].quantity", i), "min", "quantity must be at least 1")
		}
	}
	if r.TaxPercent.IsNegative() {
		add("tax_percent", "min", "tax percent cannot be negative")
	}
	if r.ServicePercent.IsNegative() {
		add("service_percent", "min", "service percent cannot be negative")
	}
	switch r.Discount.Type {
	case "", DiscountNone:
	case DiscountPercent:
		if r.Discount.Value.IsNegative() || r.Discount.Value.GreaterThan(decimal.NewFromInt(100)) {
			add("discount.value", "range", "discount percent must be between 0 and 100")
		}
	case DiscountFixed:
		if r.Discount.Value.IsNegative() {
			add("discount.value", "min", "discount cannot be negative")
		}
	default:
		add("discount.type", "invalid", "discount type must be none, percent or fixed")
	}

	if len(errs) == 0 {
		return nil
	}
	return &fault.Error{Kind: fault.KindInvalidInput, Message: "invalid order", Details: errs}
}

// Create prices the requested items against the menu, attaches the order
// to the table's session and stores it as pending. An order joining a
// session that already holds orders is supplementary to the first one.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	lines, err := s.buildLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetOrOpenSession(ctx, strings.TrimSpace(req.TableNumber))
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, sequence.KindOrder)
	if err != nil {
		return nil, fmt.Errorf("cannot allocate order number: %w", err)
	}

	o := NewOrder()
	o.Number = number
	o.TableID = session.TableID
	o.TableNumber = session.TableNumber
	o.SessionID = session.ID
	if req.Type != "" {
		o.Type = req.Type
	}
	o.Lines = lines
	o.TaxPercent = req.TaxPercent
	o.ServicePercent = req.ServicePercent
	if req.Discount.Type != "" {
		o.Discount = req.Discount
	}
	o.Notes = strings.TrimSpace(req.Notes)
	o.CustomerName = strings.TrimSpace(req.CustomerName)
	o.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	o.Version = 1
	o.Reprice()
	o.BeforeCreate()

	session, err = s.sessions.AttachOrder(ctx, session.ID, o.ID)
	if err != nil {
		return nil, err
	}
	if pos := session.Position(o.ID); pos > 0 {
		parent := session.OrderIDs[0]
		o.Supplementary = true
		o.ParentOrderID = &parent
	}

	if err := s.repo.Create(ctx, o); err != nil {
		if derr := s.sessions.DetachOrder(ctx, session.ID, o.ID); derr != nil {
			s.logger.Error("cannot detach unsaved order", "order", o.Number, "error", derr)
		}
		return nil, fmt.Errorf("cannot create order: %w", err)
	}

	s.logger.Info("order created", "order", o.Number, "table", o.TableNumber, "supplementary", o.Supplementary)
	s.publish(ctx, o, event.EventOrderCreated, "", "", "")
	return o, nil
}

func (s *Service) buildLines(ctx context.Context, items []LineRequest) ([]Line, error) {
	lines := make([]Line, 0, len(items))
	for i, req := range items {
		field := fmt.Sprintf("items[%d].menu_item_id", i)

		item, err := s.catalog.Lookup(ctx, req.MenuItemID)
		if err != nil {
			if fault.Is(err, fault.KindNotFound) {
				return nil, fault.InvalidInput("menu item %s not found", req.MenuItemID).
					WithDetail(field, "not_found", "menu item not found")
			}
			return nil, fmt.Errorf("cannot look up menu item %s: %w", req.MenuItemID, err)
		}
		if !item.Available {
			return nil, fault.Unavailable("%s is not available", item.Name).
				WithDetail(field, "unavailable", "menu item is not available")
		}

		line := Line{
			ID:                  apt.GenerateNewID(),
			MenuItemID:          item.ID,
			Name:                item.Name,
			Category:            item.Category,
			BasePrice:           item.Price,
			UnitPrice:           item.Price,
			Quantity:            req.Quantity,
			SpecialInstructions: strings.TrimSpace(req.SpecialInstructions),
		}
		for _, name := range req.Customizations {
			c, ok := item.FindCustomization(name)
			if !ok {
				return nil, fault.InvalidInput("%s has no customization %q", item.Name, name).
					WithDetail(fmt.Sprintf("items[%d].customizations", i), "invalid", "unknown customization")
			}
			line.Customizations = append(line.Customizations, Customization{Name: c.Name, Price: c.Price})
			line.UnitPrice = line.UnitPrice.Add(c.Price)
		}
		line.UnitPrice = money.Round(line.UnitPrice)
		line.reprice()
		lines = append(lines, line)
	}
	return lines, nil
}

// Get returns the order with the given id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	if o == nil {
		return nil, fault.NotFound("order %s not found", id)
	}
	return o, nil
}

// Transition moves the order to the requested status on behalf of the
// actor's role. Retrying an already applied transition returns the order
// unchanged.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target Status, actor role.Role, reason string) (*Order, error) {
	return s.transition(ctx, id, Transition{Target: target, Role: actor, Reason: reason})
}

// Complete marks a served order completed. Only billing calls it; an order
// that is already completed is returned as is.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.transition(ctx, id, Transition{Target: StatusCompleted, Role: role.Roles.Admin, viaBilling: true})
	if err == nil || !fault.Is(err, fault.KindConflict) {
		return o, err
	}
	current, gerr := s.Get(ctx, id)
	if gerr == nil && current.Status == StatusCompleted {
		return current, nil
	}
	return nil, err
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, t Transition) (*Order, error) {
	for attempt := 0; attempt <= s.retries; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		next, changed, err := Apply(current, t, s.now())
		if err != nil {
			return nil, err
		}
		if !changed {
			if err := s.notify(ctx, current, t.Role); err != nil {
				return nil, err
			}
			return current, nil
		}

		err = s.repo.Update(ctx, next, current.Status, current.Version)
		if errors.Is(err, ErrStaleVersion) {
			s.logger.Debug("order changed concurrently, re-evaluating", "order", current.Number, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cannot update order %s: %w", current.Number, err)
		}

		s.logger.Info("order status changed", "order", next.Number, "from", string(current.Status), "to", string(next.Status), "role", roleName(t.Role))
		s.publish(ctx, next, event.EventOrderStatusChanged, current.Status, roleName(t.Role), next.RejectionReason)

		if err := s.notify(ctx, next, t.Role); err != nil {
			return nil, err
		}
		return next, nil
	}

	return nil, fault.Conflict("order %s is changing concurrently, retry", id)
}

func (s *Service) notify(ctx context.Context, o *Order, actor role.Role) error {
	for _, l := range s.listeners {
		if err := l.OrderStatusChanged(ctx, o, actor); err != nil {
			return fmt.Errorf("cannot dispatch %s order %s: %w", o.Status, o.Number, err)
		}
	}
	return nil
}

// LineUpdate carries the editable fields of a line. Nil fields are left as
// they are.
type LineUpdate struct {
	Quantity            *int    `json:"quantity,omitempty"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

// UpdateLine edits a line of a pending order and reprices it.
func (s *Service) UpdateLine(ctx context.Context, orderID, lineID uuid.UUID, upd LineUpdate) (*Order, error) {
	if upd.Quantity == nil && upd.SpecialInstructions == nil {
		return nil, fault.InvalidInput("nothing to update")
	}
	if upd.Quantity != nil && *upd.Quantity < 1 {
		return nil, fault.InvalidInput("quantity must be at least 1").WithDetail("quantity", "min", "quantity must be at least 1")
	}

	for attempt := 0; attempt <= s.retries; attempt++ {
		current, err := s.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if current.Status != StatusPending {
			return nil, fault.Conflict("order %s is %s, lines can only change while pending", current.Number, current.Status)
		}

		next := current.Clone()
		line, ok := next.Line(lineID)
		if !ok {
			return nil, fault.NotFound("line %s not found in order %s", lineID, current.Number)
		}
		if upd.Quantity != nil {
			line.Quantity = *upd.Quantity
		}
		if upd.SpecialInstructions != nil {
			line.SpecialInstructions = strings.TrimSpace(*upd.SpecialInstructions)
		}
		next.Reprice()
		next.UpdatedAt = s.now()
		next.Version = current.Version + 1

		err = s.repo.Update(ctx, next, current.Status, current.Version)
		if errors.Is(err, ErrStaleVersion) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cannot update order %s: %w", current.Number, err)
		}

		s.logger.Info("order line updated", "order", next.Number, "line", lineID.String())
		return next, nil
	}

	return nil, fault.Conflict("order %s is changing concurrently, retry", orderID)
}

// List returns one page of orders matching q.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()
	orders, total, err := s.repo.List(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("cannot list orders: %w", err)
	}
	return NewPage(orders, total, q), nil
}

// ListBySession returns the session's orders in creation order.
func (s *Service) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*Order, error) {
	orders, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("cannot list session orders: %w", err)
	}
	return orders, nil
}

func (s *Service) publish(ctx context.Context, o *Order, eventType string, previous Status, actor, reason string) {
	evt := event.OrderEvent{
		EventType:      eventType,
		OccurredAt:     s.now(),
		OrderID:        o.ID.String(),
		OrderNumber:    o.Number,
		SessionID:      o.SessionID.String(),
		TableNumber:    o.TableNumber,
		Status:         string(o.Status),
		PreviousStatus: string(previous),
		Actor:          actor,
		Reason:         reason,
		Supplementary:  o.Supplementary,
		Total:          money.Format(o.Total),
	}
	if err := event.Publish(ctx, s.publisher, event.OrderLifecycleTopic, evt); err != nil {
		s.logger.Error("cannot publish order event", "order", o.Number, "error", err)
	}
}
