package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bill is the immutable settlement of one table session.
type Bill struct {
	ID              uuid.UUID       `json:"id" bson:"_id"`
	Number          string          `json:"number" bson:"number"`
	SessionID       uuid.UUID       `json:"session_id" bson:"session_id"`
	SessionNumber   string          `json:"session_number" bson:"session_number"`
	TableID         uuid.UUID       `json:"table_id" bson:"table_id"`
	TableNumber     string          `json:"table_number" bson:"table_number"`
	CustomerName    string          `json:"customer_name,omitempty" bson:"customer_name,omitempty"`
	CustomerPhone   string          `json:"customer_phone,omitempty" bson:"customer_phone,omitempty"`
	Lines           []Line          `json:"lines" bson:"lines"`
	OrderIDs        []uuid.UUID     `json:"order_ids" bson:"order_ids"`
	IsAC            bool            `json:"is_ac" bson:"is_ac"`
	Subtotal        decimal.Decimal `json:"subtotal" bson:"subtotal"`
	ACCharge        decimal.Decimal `json:"ac_charge" bson:"ac_charge"`
	DiscountPercent decimal.Decimal `json:"discount_percent" bson:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" bson:"discount_amount"`
	Total           decimal.Decimal `json:"total" bson:"total"`
	PaymentMode     string          `json:"payment_mode" bson:"payment_mode"`
	CashAmount      decimal.Decimal `json:"cash_amount" bson:"cash_amount"`
	OnlineAmount    decimal.Decimal `json:"online_amount" bson:"online_amount"`
	Comments        string          `json:"comments,omitempty" bson:"comments,omitempty"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
}

func (b *Bill) GetID() uuid.UUID {
	return b.ID
}

func (b *Bill) ResourceType() string {
	return "bill"
}

var ErrDuplicate = errors.New("bill already exists")

// Repo stores bills. Create fails with ErrDuplicate when the session
// already has a bill, which makes insertion the billing lock.
type Repo interface {
	Create(ctx context.Context, b *Bill) error
	Get(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*Bill, error)
}
