package order

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/tableside/services/order/internal/money"
)

type Type string

const (
	TypeDineIn   Type = "dine-in"
	TypeDelivery Type = "delivery"
	TypeParcel   Type = "parcel"
)

func (t Type) Valid() bool {
	switch t {
	case TypeDineIn, TypeDelivery, TypeParcel:
		return true
	}
	return false
}

type DiscountType string

const (
	DiscountNone    DiscountType = "none"
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Discount is applied to the order subtotal.
type Discount struct {
	Type  DiscountType    `json:"type" bson:"type"`
	Value decimal.Decimal `json:"value" bson:"value"`
}

// Customization is an add-on chosen for a line, priced at ordering time.
type Customization struct {
	Name  string          `json:"name" bson:"name"`
	Price decimal.Decimal `json:"price" bson:"price"`
}

// Line is one menu item within an order. Name, category and prices are
// snapshots taken when the order was placed.
type Line struct {
	ID                  uuid.UUID       `json:"id" bson:"id"`
	MenuItemID          uuid.UUID       `json:"menu_item_id" bson:"menu_item_id"`
	Name                string          `json:"name" bson:"name"`
	Category            string          `json:"category" bson:"category"`
	BasePrice           decimal.Decimal `json:"base_price" bson:"base_price"`
	UnitPrice           decimal.Decimal `json:"unit_price" bson:"unit_price"`
	Quantity            int             `json:"quantity" bson:"quantity"`
	Subtotal            decimal.Decimal `json:"subtotal" bson:"subtotal"`
	Customizations      []Customization `json:"customizations,omitempty" bson:"customizations,omitempty"`
	SpecialInstructions string          `json:"special_instructions,omitempty" bson:"special_instructions,omitempty"`
	PrepStatus          Status          `json:"prep_status,omitempty" bson:"prep_status,omitempty"`
}

// EffectivePrepStatus returns the line's own prep status, falling back to
// the order's status.
func (l Line) EffectivePrepStatus(orderStatus Status) Status {
	if l.PrepStatus != "" {
		return l.PrepStatus
	}
	return orderStatus
}

func (l *Line) reprice() {
	l.Subtotal = money.Round(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
}

type Order struct {
	ID              uuid.UUID       `json:"id" bson:"_id"`
	Number          string          `json:"number" bson:"number"`
	TableID         uuid.UUID       `json:"table_id" bson:"table_id"`
	TableNumber     string          `json:"table_number" bson:"table_number"`
	SessionID       uuid.UUID       `json:"session_id" bson:"session_id"`
	Type            Type            `json:"type" bson:"type"`
	Lines           []Line          `json:"lines" bson:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal" bson:"subtotal"`
	TaxPercent      decimal.Decimal `json:"tax_percent" bson:"tax_percent"`
	TaxAmount       decimal.Decimal `json:"tax_amount" bson:"tax_amount"`
	ServicePercent  decimal.Decimal `json:"service_percent" bson:"service_percent"`
	ServiceAmount   decimal.Decimal `json:"service_amount" bson:"service_amount"`
	Discount        Discount        `json:"discount" bson:"discount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" bson:"discount_amount"`
	Total           decimal.Decimal `json:"total" bson:"total"`
	Status          Status          `json:"status" bson:"status"`
	Supplementary   bool            `json:"supplementary" bson:"supplementary"`
	ParentOrderID   *uuid.UUID      `json:"parent_order_id,omitempty" bson:"parent_order_id,omitempty"`
	Notes           string          `json:"notes,omitempty" bson:"notes,omitempty"`
	CustomerName    string          `json:"customer_name,omitempty" bson:"customer_name,omitempty"`
	CustomerPhone   string          `json:"customer_phone,omitempty" bson:"customer_phone,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	PreparingAt     *time.Time      `json:"preparing_at,omitempty" bson:"preparing_at,omitempty"`
	ReadyAt         *time.Time      `json:"ready_at,omitempty" bson:"ready_at,omitempty"`
	ServedAt        *time.Time      `json:"served_at,omitempty" bson:"served_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty" bson:"rejected_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
	Version         int64           `json:"version" bson:"version"`
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func NewOrder() *Order {
	return &Order{
		ID:       apt.GenerateNewID(),
		Type:     TypeDineIn,
		Status:   StatusPending,
		Discount: Discount{Type: DiscountNone},
		Lines:    []Line{},
	}
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so a candidate state can be built without
// touching the persisted one.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Lines = make([]Line, len(o.Lines))
	for i, l := range o.Lines {
		l.Customizations = append([]Customization(nil), l.Customizations...)
		cp.Lines[i] = l
	}
	if o.ParentOrderID != nil {
		id := *o.ParentOrderID
		cp.ParentOrderID = &id
	}
	return &cp
}

// Reprice recomputes every line subtotal and the order totals. The total is
// never set any other way.
func (o *Order) Reprice() {
	subtotal := decimal.Zero
	for i := range o.Lines {
		o.Lines[i].reprice()
		subtotal = subtotal.Add(o.Lines[i].Subtotal)
	}
	o.Subtotal = subtotal
	o.TaxAmount = money.Round(money.Percent(subtotal, o.TaxPercent))
	o.ServiceAmount = money.Round(money.Percent(subtotal, o.ServicePercent))

	switch o.Discount.Type {
	case DiscountPercent:
		o.DiscountAmount = money.Round(money.Percent(subtotal, o.Discount.Value))
	case DiscountFixed:
		o.DiscountAmount = money.Round(o.Discount.Value)
	default:
		o.DiscountAmount = decimal.Zero
	}

	total := subtotal.Add(o.TaxAmount).Add(o.ServiceAmount).Sub(o.DiscountAmount)
	o.Total = money.Round(money.Max(total, decimal.Zero))
}

// Line returns the line with the given id.
func (o *Order) Line(id uuid.UUID) (*Line, bool) {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i], true
		}
	}
	return nil, false
}

// IsTerminal reports whether no further transitions are accepted.
func (o *Order) IsTerminal() bool {
	return o.Status.Terminal()
}
