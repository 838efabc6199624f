package order

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// FakeRepo is an in-memory Repo with the same compare-and-set semantics as
// the Mongo implementation.
type FakeRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*Order
}

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{orders: make(map[uuid.UUID]*Order)}
}

func (r *FakeRepo) Create(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range r.orders {
		if existing.Number == o.Number {
			return ErrDuplicate
		}
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *FakeRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return o.Clone(), nil
}

func (r *FakeRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Order
	for _, o := range r.orders {
		if o.SessionID == sessionID {
			out = append(out, o.Clone())
		}
	}
	sortOrders(out, SortCreatedAt, false)
	return out, nil
}

func (r *FakeRepo) List(ctx context.Context, q Query) ([]*Order, int64, error) {
	r.mu.RLock()
	var matched []*Order
	for _, o := range r.orders {
		if q.Matches(o) {
			matched = append(matched, o.Clone())
		}
	}
	r.mu.RUnlock()

	sortOrders(matched, q.Sort, q.Desc)
	total := int64(len(matched))

	start := q.Offset()
	if start >= len(matched) {
		return []*Order{}, total, nil
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *FakeRepo) Update(ctx context.Context, o *Order, expectStatus Status, expectVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[o.ID]
	if !ok || current.Status != expectStatus || current.Version != expectVersion {
		return ErrStaleVersion
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

// Put stores o as is, bypassing version checks.
func (r *FakeRepo) Put(o *Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o.Clone()
}

func sortOrders(orders []*Order, key string, desc bool) {
	less := func(a, b *Order) bool {
		switch key {
		case SortNumber:
			return a.Number < b.Number
		case SortTotal:
			return a.Total.LessThan(b.Total)
		case SortStatus:
			return a.Status < b.Status
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if desc {
			return less(orders[j], orders[i])
		}
		return less(orders[i], orders[j])
	})
}
