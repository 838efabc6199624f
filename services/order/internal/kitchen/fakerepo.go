package kitchen

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/pkg/enums/cookstage"
)

// FakeTicketRepo keeps tickets in memory.
type FakeTicketRepo struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]*Ticket
}

func NewFakeTicketRepo() *FakeTicketRepo {
	return &FakeTicketRepo{tickets: make(map[uuid.UUID]*Ticket)}
}

func (r *FakeTicketRepo) Create(ctx context.Context, t *Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tickets {
		if existing.OrderID == t.OrderID {
			return ErrDuplicate
		}
	}
	r.tickets[t.ID] = cloneTicket(t)
	return nil
}

func (r *FakeTicketRepo) Get(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, nil
	}
	return cloneTicket(t), nil
}

func (r *FakeTicketRepo) GetByOrder(ctx context.Context, orderID uuid.UUID) (*Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tickets {
		if t.OrderID == orderID {
			return cloneTicket(t), nil
		}
	}
	return nil, nil
}

func (r *FakeTicketRepo) List(ctx context.Context, filter TicketFilter) ([]*Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Ticket{}
	for _, t := range r.tickets {
		if !filter.matches(t) {
			continue
		}
		out = append(out, cloneTicket(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfirmedAt.Before(out[j].ConfirmedAt) })
	return out, nil
}

func (r *FakeTicketRepo) UpdateStage(ctx context.Context, id uuid.UUID, from, next string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.Stage != from {
		return false, nil
	}
	t.Stage = next
	t.UpdatedAt = at
	stamp := at
	switch next {
	case cookstage.Stages.Cooking.Name:
		t.StartedAt = &stamp
	case cookstage.Stages.Ready.Name:
		t.ReadyAt = &stamp
	case cookstage.Stages.Cancelled.Name:
		t.CancelledAt = &stamp
	}
	return true, nil
}

func (r *FakeTicketRepo) IncrementReprint(ctx context.Context, id uuid.UUID, at time.Time) (*Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, nil
	}
	t.ReprintCount++
	stamp := at
	t.LastPrintedAt = &stamp
	return cloneTicket(t), nil
}

func (f TicketFilter) matches(t *Ticket) bool {
	if len(f.Stages) > 0 {
		found := false
		for _, s := range f.Stages {
			if t.Stage == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TableNumber != "" && t.TableNumber != f.TableNumber {
		return false
	}
	if f.SessionID != nil && t.SessionID != *f.SessionID {
		return false
	}
	return true
}

func cloneTicket(t *Ticket) *Ticket {
	cp := *t
	cp.Lines = append([]TicketLine(nil), t.Lines...)
	return &cp
}
