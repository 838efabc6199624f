package billing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
	"github.com/appetiteclub/tableside/services/order/internal/order"
)

func TestComputeBillScenario(t *testing.T) {
	f := newBillerFixture()
	ctx := context.Background()
	o := f.placeOrder(t, "6", order.StatusServed)

	result, err := f.biller.ComputeBill(ctx, Request{
		TableNumber:     "6",
		DiscountPercent: dec("5"),
		Payment:         Payment{Mode: "cash"},
	})
	if err != nil {
		t.Fatalf("ComputeBill() error = %v", err)
	}

	want := map[string]string{"subtotal": "1000", "ac": "200", "discount": "60", "total": "1140"}
	got := map[string]string{
		"subtotal": result.Subtotal.String(),
		"ac":       result.ACCharge.String(),
		"discount": result.DiscountAmount.String(),
		"total":    result.Total.String(),
	}
	for k, v := range want {
		if !dec(got[k]).Equal(dec(v)) {
			t.Errorf("%s = %s, want %s", k, got[k], v)
		}
	}
	if !result.IsAC || !result.TableReleased || len(result.CompletedOrders) != 1 || result.CompletedOrders[0] != o.Number {
		t.Errorf("result = %+v", result)
	}
	if !result.CashAmount.Equal(dec("1140")) {
		t.Errorf("CashAmount = %s, want 1140", result.CashAmount)
	}

	completed, err := f.orders.Get(ctx, o.ID)
	if err != nil || completed.Status != order.StatusCompleted {
		t.Errorf("order = %v, %v; want completed", completed, err)
	}

	table, err := f.coordinator.Table(ctx, "6")
	if err != nil || table.IsOccupied() {
		t.Errorf("table = %+v, %v; want released", table, err)
	}
	session, err := f.coordinator.Session(ctx, result.SessionID)
	if err != nil || session.IsOpen() || session.BillID == nil || *session.BillID != result.ID {
		t.Errorf("session = %+v, %v; want closed with bill", session, err)
	}

	stored, err := f.biller.Get(ctx, result.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	recomputed, err := NewCalculator().Compute(stored.Lines, Options{IsAC: stored.IsAC, DiscountPercent: stored.DiscountPercent, Payment: Payment{Mode: stored.PaymentMode}})
	if err != nil || !recomputed.Total.Equal(stored.Total) {
		t.Errorf("stored bill does not reproduce its total: %s vs %s (%v)", recomputed.Total, stored.Total, err)
	}
	if f.publisher.Count(event.BillsTopic) != 1 {
		t.Errorf("bill events = %d, want 1", f.publisher.Count(event.BillsTopic))
	}
}

func TestComputeBillErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, f billerFixture)
		req      Request
		wantKind fault.Kind
	}{
		{
			name:     "noTarget",
			req:      Request{Payment: Payment{Mode: "cash"}},
			wantKind: fault.KindInvalidInput,
		},
		{
			name:     "unknownTable",
			req:      Request{TableNumber: "99", Payment: Payment{Mode: "cash"}},
			wantKind: fault.KindNotFound,
		},
		{
			name:     "vacantTable",
			req:      Request{TableNumber: "1", Payment: Payment{Mode: "cash"}},
			wantKind: fault.KindNotFound,
		},
		{
			name: "orderNotServed",
			setup: func(t *testing.T, f billerFixture) {
				f.placeOrder(t, "1", order.StatusServed)
				f.placeOrder(t, "1", order.StatusPreparing)
			},
			req:      Request{TableNumber: "1", Payment: Payment{Mode: "cash"}},
			wantKind: fault.KindConflict,
		},
		{
			name: "onlyRejected",
			setup: func(t *testing.T, f billerFixture) {
				f.placeOrder(t, "1", order.StatusRejected)
			},
			req:      Request{TableNumber: "1", Payment: Payment{Mode: "cash"}},
			wantKind: fault.KindInvalidInput,
		},
		{
			name: "splitMismatch",
			setup: func(t *testing.T, f billerFixture) {
				f.placeOrder(t, "1", order.StatusServed)
			},
			req:      Request{TableNumber: "1", Payment: Payment{Mode: "split", CashAmount: dec("500"), OnlineAmount: dec("100")}},
			wantKind: fault.KindConflict,
		},
		{
			name: "badDiscount",
			setup: func(t *testing.T, f billerFixture) {
				f.placeOrder(t, "1", order.StatusServed)
			},
			req:      Request{TableNumber: "1", DiscountPercent: dec("120"), Payment: Payment{Mode: "cash"}},
			wantKind: fault.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBillerFixture()
			if tt.setup != nil {
				tt.setup(t, f)
			}

			_, err := f.biller.ComputeBill(context.Background(), tt.req)
			if got := fault.KindOf(err); got != tt.wantKind {
				t.Fatalf("ComputeBill() error = %v, want kind %q", err, tt.wantKind)
			}
			if f.repo.Count() != 0 {
				t.Error("failed billing must not store a bill")
			}
		})
	}
}

func TestComputeBillExcludesRejected(t *testing.T) {
	f := newBillerFixture()
	served := f.placeOrder(t, "1", order.StatusServed)
	rejected := f.placeOrder(t, "1", order.StatusRejected)

	result, err := f.biller.ComputeBill(context.Background(), Request{TableNumber: "1", Payment: Payment{Mode: "online"}})
	if err != nil {
		t.Fatalf("ComputeBill() error = %v", err)
	}
	if len(result.OrderIDs) != 1 || result.OrderIDs[0] != served.ID {
		t.Errorf("OrderIDs = %v, want only %s", result.OrderIDs, served.ID)
	}
	if !result.Total.Equal(dec("1000")) {
		t.Errorf("Total = %s, want 1000", result.Total)
	}

	stillRejected, _ := f.orders.Get(context.Background(), rejected.ID)
	if stillRejected.Status != order.StatusRejected {
		t.Errorf("rejected order became %s", stillRejected.Status)
	}
}

func TestComputeBillIdempotent(t *testing.T) {
	f := newBillerFixture()
	ctx := context.Background()
	f.placeOrder(t, "1", order.StatusServed)

	first, err := f.biller.ComputeBill(ctx, Request{TableNumber: "1", Payment: Payment{Mode: "cash"}})
	if err != nil {
		t.Fatalf("ComputeBill() error = %v", err)
	}
	sessionID := first.SessionID

	again, err := f.biller.ComputeBill(ctx, Request{SessionID: &sessionID, Payment: Payment{Mode: "cash"}})
	if err != nil {
		t.Fatalf("ComputeBill() retry error = %v", err)
	}
	if again.ID != first.ID || f.repo.Count() != 1 {
		t.Errorf("retry produced bill %s, want %s", again.ID, first.ID)
	}
	if f.publisher.Count(event.BillsTopic) != 1 {
		t.Errorf("bill events = %d, want 1", f.publisher.Count(event.BillsTopic))
	}
}

func TestComputeBillResumesInterruptedSettlement(t *testing.T) {
	f := newBillerFixture()
	ctx := context.Background()
	o := f.placeOrder(t, "1", order.StatusServed)
	session, err := f.coordinator.Session(ctx, o.SessionID)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}

	f.orders.CompleteFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
		return nil, errors.New("connection reset")
	}
	if _, err := f.biller.ComputeBill(ctx, Request{TableNumber: "1", Payment: Payment{Mode: "cash"}}); err == nil {
		t.Fatal("ComputeBill() expected error")
	}
	if f.repo.Count() != 1 {
		t.Fatalf("bills = %d, want 1 stored before settlement", f.repo.Count())
	}

	f.orders.CompleteFunc = nil
	result, err := f.biller.ComputeBill(ctx, Request{SessionID: &session.ID, Payment: Payment{Mode: "cash"}})
	if err != nil {
		t.Fatalf("ComputeBill() resume error = %v", err)
	}
	if !result.TableReleased || len(result.CompletedOrders) != 1 {
		t.Errorf("resume = %+v", result)
	}
}

func TestComputeBillConcurrent(t *testing.T) {
	f := newBillerFixture()
	o := f.placeOrder(t, "1", order.StatusServed)

	const workers = 6
	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sid := o.SessionID
			result, err := f.biller.ComputeBill(context.Background(), Request{SessionID: &sid, Payment: Payment{Mode: "cash"}})
			if err != nil {
				errs <- err
				return
			}
			ids <- result.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		if !fault.Is(err, fault.KindConflict) {
			t.Errorf("ComputeBill() error = %v, want conflict", err)
		}
	}
	seen := map[uuid.UUID]bool{}
	for id := range ids {
		seen[id] = true
	}
	if len(seen) != 1 || f.repo.Count() != 1 {
		t.Errorf("distinct bills = %d, stored = %d; want 1", len(seen), f.repo.Count())
	}
}

func TestComputeBillWaitsForOrderBeingPlaced(t *testing.T) {
	f := newBillerFixture()
	ctx := context.Background()
	served := f.placeOrder(t, "1", order.StatusServed)

	entered := make(chan struct{})
	gate := make(chan struct{})
	f.orderRepo.CreateFunc = func(ctx context.Context, o *order.Order) error {
		close(entered)
		<-gate
		return f.orderRepo.FakeRepo.Create(ctx, o)
	}

	type created struct {
		order *order.Order
		err   error
	}
	done := make(chan created, 1)
	go func() {
		o, err := f.orders.Create(ctx, order.CreateRequest{
			TableNumber: "1",
			Items:       []order.LineRequest{{MenuItemID: friesID, Quantity: 1}},
		})
		done <- created{o, err}
	}()
	<-entered

	_, err := f.biller.ComputeBill(ctx, Request{TableNumber: "1", Payment: Payment{Mode: "cash"}})
	if !fault.Is(err, fault.KindConflict) {
		t.Fatalf("ComputeBill() error = %v, want conflict", err)
	}
	if f.repo.Count() != 0 {
		t.Errorf("stored bills = %d, want 0", f.repo.Count())
	}

	table, err := f.tables.GetByNumber(ctx, "1")
	if err != nil {
		t.Fatalf("GetByNumber() error = %v", err)
	}
	if table.CurrentSessionID == nil || *table.CurrentSessionID != served.SessionID {
		t.Errorf("table session = %v, want %s", table.CurrentSessionID, served.SessionID)
	}
	session, err := f.coordinator.Session(ctx, served.SessionID)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if !session.IsOpen() || session.IsHeld() {
		t.Errorf("session open = %v, held = %v; want open and not held", session.IsOpen(), session.IsHeld())
	}

	close(gate)
	res := <-done
	if res.err != nil {
		t.Fatalf("Create() error = %v", res.err)
	}
	if res.order.SessionID != served.SessionID {
		t.Errorf("SessionID = %s, want %s", res.order.SessionID, served.SessionID)
	}
	stored, err := f.orders.Get(ctx, res.order.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != order.StatusPending {
		t.Errorf("Status = %s, want %s", stored.Status, order.StatusPending)
	}
}
