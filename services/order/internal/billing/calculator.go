// Package billing turns a table session's served orders into a bill and
// closes the session.
//
// Compute is a pure function over bill lines and options. Biller wraps it
// with the persistence steps: number allocation, a bill stored at most once
// per session, order completion and table release.
package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/tableside/pkg/enums/paymentmode"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
	"github.com/appetiteclub/tableside/services/order/internal/money"
	"github.com/appetiteclub/tableside/services/order/internal/order"
)

var (
	DefaultACRate         = decimal.RequireFromString("0.20")
	DefaultSplitTolerance = decimal.RequireFromString("0.01")
	hundred               = decimal.NewFromInt(100)
)

// Line is one merged bill row.
type Line struct {
	MenuItemID     uuid.UUID       `json:"menu_item_id" bson:"menu_item_id"`
	Name           string          `json:"name" bson:"name"`
	Category       string          `json:"category" bson:"category"`
	Customizations []string        `json:"customizations,omitempty" bson:"customizations,omitempty"`
	UnitPrice      decimal.Decimal `json:"unit_price" bson:"unit_price"`
	Quantity       int             `json:"quantity" bson:"quantity"`
	Amount         decimal.Decimal `json:"amount" bson:"amount"`
}

// Payment describes how the bill is settled.
type Payment struct {
	Mode         string          `json:"payment_mode"`
	CashAmount   decimal.Decimal `json:"cash_amount"`
	OnlineAmount decimal.Decimal `json:"online_amount"`
}

type Options struct {
	IsAC            bool
	DiscountPercent decimal.Decimal
	Payment         Payment
}

type Totals struct {
	Subtotal        decimal.Decimal
	ACCharge        decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	Total           decimal.Decimal
	PaymentMode     paymentmode.Mode
	CashAmount      decimal.Decimal
	OnlineAmount    decimal.Decimal
}

// SplitMismatch is the cause attached to a rejected split payment.
type SplitMismatch struct {
	Total     decimal.Decimal
	Paid      decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *SplitMismatch) Error() string {
	return fmt.Sprintf("split payment %s does not match total %s (shortfall %s)",
		money.Format(e.Paid), money.Format(e.Total), money.Format(e.Shortfall))
}

// Calculator holds the billing rates.
type Calculator struct {
	ACRate         decimal.Decimal
	SplitTolerance decimal.Decimal
}

func NewCalculator() Calculator {
	return Calculator{ACRate: DefaultACRate, SplitTolerance: DefaultSplitTolerance}
}

// Compute prices lines under opts:
//
//	subtotal = Σ unit price × quantity
//	ac       = subtotal × ACRate, when seated in an AC zone
//	discount = (subtotal + ac) × percent / 100
//	total    = subtotal + ac − discount
//
// Each figure is rounded to two places, half away from zero.
func (c Calculator) Compute(lines []Line, opts Options) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, fault.InvalidInput("no billable orders")
	}
	if opts.DiscountPercent.IsNegative() || opts.DiscountPercent.GreaterThan(hundred) {
		return Totals{}, fault.InvalidInput("discount percent must be between 0 and 100").
			WithDetail("discount_percent", "range", "must be between 0 and 100")
	}
	mode := paymentmode.ByName(opts.Payment.Mode)
	if mode == nil {
		return Totals{}, fault.InvalidInput("unknown payment mode %q", opts.Payment.Mode).
			WithDetail("payment_mode", "invalid", "must be cash, online or split")
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = money.Round(subtotal)

	acCharge := decimal.Zero
	if opts.IsAC {
		acCharge = money.Round(subtotal.Mul(c.ACRate))
	}

	discount := money.Round(money.Percent(subtotal.Add(acCharge), opts.DiscountPercent))
	total := money.Round(subtotal.Add(acCharge).Sub(discount))

	t := Totals{
		Subtotal:        subtotal,
		ACCharge:        acCharge,
		DiscountPercent: opts.DiscountPercent,
		DiscountAmount:  discount,
		Total:           total,
		PaymentMode:     *mode,
	}

	switch mode.Name {
	case paymentmode.Modes.Cash.Name:
		t.CashAmount, t.OnlineAmount = total, decimal.Zero
	case paymentmode.Modes.Online.Name:
		t.CashAmount, t.OnlineAmount = decimal.Zero, total
	case paymentmode.Modes.Split.Name:
		cash, online := money.Round(opts.Payment.CashAmount), money.Round(opts.Payment.OnlineAmount)
		if cash.IsNegative() || online.IsNegative() {
			return Totals{}, fault.InvalidInput("split amounts cannot be negative")
		}
		paid := cash.Add(online)
		if !money.Within(paid, total, c.SplitTolerance) {
			shortfall := total.Sub(paid)
			return Totals{}, fault.Conflict("split payment does not match the bill total").
				WithDetail("shortfall", "split_mismatch", money.Format(shortfall)).
				Wrap(&SplitMismatch{Total: total, Paid: paid, Shortfall: shortfall})
		}
		t.CashAmount, t.OnlineAmount = cash, online
	}

	return t, nil
}

// MergeLines folds the lines of several orders into bill rows, combining
// identical items bought at the same price with the same add-ons.
func MergeLines(orders []*order.Order) []Line {
	index := make(map[string]int)
	var lines []Line
	for _, o := range orders {
		for _, l := range o.Lines {
			var names []string
			for _, c := range l.Customizations {
				names = append(names, c.Name)
			}
			sort.Strings(names)
			key := strings.Join([]string{l.MenuItemID.String(), l.UnitPrice.String(), strings.Join(names, "+")}, "|")

			if i, ok := index[key]; ok {
				lines[i].Quantity += l.Quantity
				continue
			}
			index[key] = len(lines)
			lines = append(lines, Line{
				MenuItemID:     l.MenuItemID,
				Name:           l.Name,
				Category:       l.Category,
				Customizations: names,
				UnitPrice:      l.UnitPrice,
				Quantity:       l.Quantity,
			})
		}
	}
	for i := range lines {
		lines[i].Amount = money.Round(lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(lines[i].Quantity))))
	}
	return lines
}
