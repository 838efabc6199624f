package billing

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type FakeRepo struct {
	mu    sync.RWMutex
	bills map[uuid.UUID]*Bill
}

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{bills: make(map[uuid.UUID]*Bill)}
}

func (r *FakeRepo) Create(ctx context.Context, b *Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bills {
		if existing.SessionID == b.SessionID || existing.Number == b.Number {
			return ErrDuplicate
		}
	}
	cp := *b
	r.bills[b.ID] = &cp
	return nil
}

func (r *FakeRepo) Get(ctx context.Context, id uuid.UUID) (*Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bills[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *FakeRepo) GetBySession(ctx context.Context, sessionID uuid.UUID) (*Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.bills {
		if b.SessionID == sessionID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *FakeRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bills)
}
