package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrStaleVersion reports that the stored order no longer matches the
	// expected status and version.
	ErrStaleVersion = errors.New("stale order version")
	ErrDuplicate    = errors.New("duplicate order")
)

type Repo interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*Order, error)
	List(ctx context.Context, q Query) ([]*Order, int64, error)
	// Update replaces the stored order only while it still holds
	// expectStatus and expectVersion; otherwise it returns ErrStaleVersion.
	Update(ctx context.Context, o *Order, expectStatus Status, expectVersion int64) error
}
