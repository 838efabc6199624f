package event

import "time"

const (
	BillsTopic      = "bills.closed"
	EventBillClosed = "bill.closed"
)

// BillClosedEvent is the durable record of a session close-out. It is
// published to a JetStream stream so reporting can replay it.
type BillClosedEvent struct {
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	BillID       string    `json:"bill_id"`
	BillNumber   string    `json:"bill_number"`
	SessionID    string    `json:"session_id"`
	TableNumber  string    `json:"table_number"`
	OrderIDs     []string  `json:"order_ids"`
	Subtotal     string    `json:"subtotal"`
	ACCharge     string    `json:"ac_charge"`
	Discount     string    `json:"discount"`
	Total        string    `json:"total"`
	PaymentMode  string    `json:"payment_mode"`
	CashAmount   string    `json:"cash_amount"`
	OnlineAmount string    `json:"online_amount"`
}
