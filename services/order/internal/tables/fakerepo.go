package tables

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/apt/seed"
	"github.com/google/uuid"
)

// FakeTableRepo is an in-memory TableRepo with the same claim/release
// semantics as the Mongo implementation.
type FakeTableRepo struct {
	mu     sync.RWMutex
	tables map[uuid.UUID]*Table
}

func NewFakeTableRepo(tables ...*Table) *FakeTableRepo {
	r := &FakeTableRepo{tables: make(map[uuid.UUID]*Table)}
	for _, t := range tables {
		t.EnsureID()
		cp := *t
		r.tables[t.ID] = &cp
	}
	return r
}

func (r *FakeTableRepo) Create(ctx context.Context, table *Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tables {
		if existing.Number == table.Number {
			return fmt.Errorf("table %s already exists", table.Number)
		}
	}
	cp := *table
	r.tables[table.ID] = &cp
	return nil
}

func (r *FakeTableRepo) Get(ctx context.Context, id uuid.UUID) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *FakeTableRepo) GetByNumber(ctx context.Context, number string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tables {
		if t.Number == number {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *FakeTableRepo) List(ctx context.Context) ([]*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *FakeTableRepo) Claim(ctx context.Context, tableID, sessionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[tableID]
	if !ok || t.CurrentSessionID != nil {
		return false, nil
	}
	id := sessionID
	t.CurrentSessionID = &id
	t.Status = StatusOccupied
	t.UpdatedAt = time.Now()
	return true, nil
}

func (r *FakeTableRepo) Release(ctx context.Context, tableID, sessionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[tableID]
	if !ok || t.CurrentSessionID == nil || *t.CurrentSessionID != sessionID {
		return false, nil
	}
	t.CurrentSessionID = nil
	t.Status = StatusAvailable
	t.UpdatedAt = time.Now()
	return true, nil
}

// FakeSessionRepo is an in-memory SessionRepo.
type FakeSessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (r *FakeSessionRepo) Create(ctx context.Context, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *FakeSessionRepo) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (r *FakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *FakeSessionRepo) AttachOrder(ctx context.Context, sessionID, orderID uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || !s.IsOpen() {
		return nil, ErrSessionClosed
	}
	if s.IsHeld() {
		return nil, ErrSessionHeld
	}
	if s.Position(orderID) < 0 {
		s.OrderIDs = append(s.OrderIDs, orderID)
	}
	return cloneSession(s), nil
}

func (r *FakeSessionRepo) DetachOrder(ctx context.Context, sessionID, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	kept := s.OrderIDs[:0]
	for _, id := range s.OrderIDs {
		if id != orderID {
			kept = append(kept, id)
		}
	}
	s.OrderIDs = kept
	return nil
}

func (r *FakeSessionRepo) Hold(ctx context.Context, sessionID, holdID uuid.UUID, at, staleBefore time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || !s.IsOpen() {
		return nil, nil
	}
	if s.IsHeld() && *s.BillingHold != holdID && !s.BillingHeldAt.Before(staleBefore) {
		return nil, nil
	}
	id, stamp := holdID, at
	s.BillingHold = &id
	s.BillingHeldAt = &stamp
	return cloneSession(s), nil
}

func (r *FakeSessionRepo) Unhold(ctx context.Context, sessionID, holdID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || !s.IsHeld() || *s.BillingHold != holdID {
		return nil
	}
	s.BillingHold = nil
	s.BillingHeldAt = nil
	return nil
}

func (r *FakeSessionRepo) Close(ctx context.Context, sessionID uuid.UUID, billID *uuid.UUID, closedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || !s.IsOpen() {
		return false, nil
	}
	at := closedAt
	s.ClosedAt = &at
	s.BillID = billID
	return true, nil
}

// Count returns how many sessions exist, open or closed.
func (r *FakeSessionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func cloneSession(s *Session) *Session {
	cp := *s
	cp.OrderIDs = append([]uuid.UUID(nil), s.OrderIDs...)
	return &cp
}

// FakeSeedTracker remembers applied seeds in memory.
type FakeSeedTracker struct {
	mu      sync.Mutex
	records map[string]seed.Record
}

func NewFakeSeedTracker() *FakeSeedTracker {
	return &FakeSeedTracker{records: make(map[string]seed.Record)}
}

func (t *FakeSeedTracker) HasRun(ctx context.Context, id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.records[id]
	return ok, nil
}

func (t *FakeSeedTracker) MarkRun(ctx context.Context, record seed.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[record.ID] = record
	return nil
}
