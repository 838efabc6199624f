package tables

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
	"github.com/appetiteclub/tableside/services/order/internal/sequence"
)

type coordinatorFixture struct {
	coordinator *Coordinator
	tables      *FakeTableRepo
	sessions    *FakeSessionRepo
	publisher   *MockPublisher
}

func newCoordinatorFixture(tables ...*Table) coordinatorFixture {
	if len(tables) == 0 {
		tables = []*Table{NewTable("1"), NewTable("2")}
	}
	tableRepo := NewFakeTableRepo(tables...)
	sessionRepo := NewFakeSessionRepo()
	pub := NewMockPublisher()
	numbers := sequence.NewGenerator(sequence.NewMemoryStore(), nil)
	return coordinatorFixture{
		coordinator: NewCoordinator(tableRepo, sessionRepo, numbers, pub, nil),
		tables:      tableRepo,
		sessions:    sessionRepo,
		publisher:   pub,
	}
}

func TestGetOrOpenSession(t *testing.T) {
	tests := []struct {
		name     string
		table    string
		wantKind fault.Kind
	}{
		{name: "vacantTable", table: "1"},
		{name: "unknownTable", table: "99", wantKind: fault.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinatorFixture()
			session, err := f.coordinator.GetOrOpenSession(context.Background(), tt.table)

			if fault.KindOf(err) != tt.wantKind {
				t.Fatalf("GetOrOpenSession() error = %v, want kind %q", err, tt.wantKind)
			}
			if tt.wantKind != "" {
				return
			}

			if !session.IsOpen() {
				t.Error("session should be open")
			}
			table, _ := f.tables.GetByNumber(context.Background(), tt.table)
			if table.Status != StatusOccupied {
				t.Errorf("table status = %q, want occupied", table.Status)
			}
			if table.CurrentSessionID == nil || *table.CurrentSessionID != session.ID {
				t.Error("table should point at the new session")
			}
			if f.publisher.Count(event.TableStatusTopic) != 1 {
				t.Error("expected one table status event")
			}
		})
	}
}

func TestGetOrOpenSessionReusesOpenSession(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	first, err := f.coordinator.GetOrOpenSession(ctx, "1")
	if err != nil {
		t.Fatalf("first open error = %v", err)
	}
	second, err := f.coordinator.GetOrOpenSession(ctx, "1")
	if err != nil {
		t.Fatalf("second open error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("second open returned session %s, want %s", second.ID, first.ID)
	}
	if f.sessions.Count() != 1 {
		t.Errorf("sessions = %d, want 1", f.sessions.Count())
	}
}

func TestGetOrOpenSessionConcurrent(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	const callers = 32
	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := f.coordinator.GetOrOpenSession(ctx, "2")
			if err != nil {
				t.Errorf("GetOrOpenSession() error = %v", err)
				return
			}
			ids <- s.ID
		}()
	}
	wg.Wait()
	close(ids)

	var first uuid.UUID
	for id := range ids {
		if first == uuid.Nil {
			first = id
			continue
		}
		if id != first {
			t.Fatalf("callers observed different sessions: %s and %s", first, id)
		}
	}
	if f.sessions.Count() != 1 {
		t.Errorf("sessions left = %d, want exactly 1", f.sessions.Count())
	}
}

func TestCloseSession(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	session, err := f.coordinator.GetOrOpenSession(ctx, "1")
	if err != nil {
		t.Fatalf("open error = %v", err)
	}
	billID := uuid.New()

	released, err := f.coordinator.CloseSession(ctx, session.ID, &billID)
	if err != nil || !released {
		t.Fatalf("CloseSession() = %v, %v; want released", released, err)
	}

	closed, _ := f.sessions.Get(ctx, session.ID)
	if closed.IsOpen() {
		t.Error("session should be closed")
	}
	if closed.BillID == nil || *closed.BillID != billID {
		t.Error("session should reference the bill")
	}

	table, _ := f.tables.GetByNumber(ctx, "1")
	if table.IsOccupied() || table.Status != StatusAvailable {
		t.Errorf("table should be released, got status %q", table.Status)
	}

	if released, err := f.coordinator.CloseSession(ctx, session.ID, &billID); err != nil || !released {
		t.Errorf("second CloseSession() = %v, %v; want released no-op", released, err)
	}

	next, err := f.coordinator.GetOrOpenSession(ctx, "1")
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if next.ID == session.ID {
		t.Error("reopening should create a new session")
	}
}

func TestGetOrOpenSessionRecoversStaleReference(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	session, err := f.coordinator.GetOrOpenSession(ctx, "1")
	if err != nil {
		t.Fatalf("open error = %v", err)
	}
	// Session closed without the table being released.
	if _, err := f.sessions.Close(ctx, session.ID, nil, session.OpenedAt); err != nil {
		t.Fatalf("close error = %v", err)
	}

	next, err := f.coordinator.GetOrOpenSession(ctx, "1")
	if err != nil {
		t.Fatalf("GetOrOpenSession() error = %v", err)
	}
	if next.ID == session.ID {
		t.Error("expected a fresh session after stale reference")
	}
}

func TestAttachOrder(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	session, _ := f.coordinator.GetOrOpenSession(ctx, "1")
	first, second := uuid.New(), uuid.New()

	if _, err := f.coordinator.AttachOrder(ctx, session.ID, first); err != nil {
		t.Fatalf("AttachOrder() error = %v", err)
	}
	updated, err := f.coordinator.AttachOrder(ctx, session.ID, second)
	if err != nil {
		t.Fatalf("AttachOrder() error = %v", err)
	}
	if updated.Position(second) != 1 {
		t.Errorf("Position() = %d, want 1", updated.Position(second))
	}

	if _, err := f.coordinator.CloseSession(ctx, session.ID, nil); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}
	if _, err := f.coordinator.AttachOrder(ctx, session.ID, uuid.New()); !fault.Is(err, fault.KindConflict) {
		t.Errorf("AttachOrder() on closed session error = %v, want conflict", err)
	}
}

func TestHoldForBilling(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	session, _ := f.coordinator.GetOrOpenSession(ctx, "1")
	first := uuid.New()
	if _, err := f.coordinator.AttachOrder(ctx, session.ID, first); err != nil {
		t.Fatalf("AttachOrder() error = %v", err)
	}

	holder := uuid.New()
	held, err := f.coordinator.HoldForBilling(ctx, session.ID, holder)
	if err != nil {
		t.Fatalf("HoldForBilling() error = %v", err)
	}
	if !held.IsHeld() || len(held.OrderIDs) != 1 {
		t.Errorf("held session = %+v, want hold with one order", held)
	}

	if _, err := f.coordinator.AttachOrder(ctx, session.ID, uuid.New()); !fault.Is(err, fault.KindConflict) {
		t.Errorf("AttachOrder() on held session error = %v, want conflict", err)
	}
	if _, err := f.coordinator.HoldForBilling(ctx, session.ID, uuid.New()); !fault.Is(err, fault.KindConflict) {
		t.Errorf("second HoldForBilling() error = %v, want conflict", err)
	}

	f.coordinator.ReleaseBillingHold(ctx, session.ID, uuid.New())
	if stored, _ := f.sessions.Get(ctx, session.ID); !stored.IsHeld() {
		t.Error("a foreign id must not release the hold")
	}

	f.coordinator.ReleaseBillingHold(ctx, session.ID, holder)
	updated, err := f.coordinator.AttachOrder(ctx, session.ID, uuid.New())
	if err != nil || len(updated.OrderIDs) != 2 {
		t.Errorf("AttachOrder() after release = %v, %v; want two orders", updated, err)
	}
}

func TestHoldForBillingTakesOverStaleHold(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	f.coordinator.now = func() time.Time { return now }

	session, _ := f.coordinator.GetOrOpenSession(ctx, "1")
	if _, err := f.coordinator.HoldForBilling(ctx, session.ID, uuid.New()); err != nil {
		t.Fatalf("HoldForBilling() error = %v", err)
	}

	now = now.Add(billingHoldTTL + time.Second)
	next := uuid.New()
	held, err := f.coordinator.HoldForBilling(ctx, session.ID, next)
	if err != nil {
		t.Fatalf("HoldForBilling() after TTL error = %v", err)
	}
	if *held.BillingHold != next {
		t.Error("stale hold should pass to the new holder")
	}
}

// MockTableRepo lets tests fail table releases.
type MockTableRepo struct {
	*FakeTableRepo
	ReleaseFunc func(ctx context.Context, tableID, sessionID uuid.UUID) (bool, error)
}

func (m *MockTableRepo) Release(ctx context.Context, tableID, sessionID uuid.UUID) (bool, error) {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, tableID, sessionID)
	}
	return m.FakeTableRepo.Release(ctx, tableID, sessionID)
}

func TestCloseSessionReportsFailedRelease(t *testing.T) {
	ctx := context.Background()
	tableRepo := &MockTableRepo{FakeTableRepo: NewFakeTableRepo(NewTable("1"))}
	sessions := NewFakeSessionRepo()
	c := NewCoordinator(tableRepo, sessions, sequence.NewGenerator(sequence.NewMemoryStore(), nil), nil, nil)

	session, err := c.GetOrOpenSession(ctx, "1")
	if err != nil {
		t.Fatalf("open error = %v", err)
	}

	tableRepo.ReleaseFunc = func(ctx context.Context, tableID, sessionID uuid.UUID) (bool, error) {
		return false, errors.New("tables unavailable")
	}
	released, err := c.CloseSession(ctx, session.ID, nil)
	if err != nil || released {
		t.Errorf("CloseSession() = %v, %v; want closed but not released", released, err)
	}

	tableRepo.ReleaseFunc = nil
	if released, err := c.CloseSession(ctx, session.ID, nil); err != nil || !released {
		t.Errorf("retried CloseSession() = %v, %v; want released", released, err)
	}
}
