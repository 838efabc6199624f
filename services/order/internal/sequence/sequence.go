// Package sequence allocates the human-readable numbers printed on orders,
// sessions and bills.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
)

type Kind string

const (
	KindOrder   Kind = "order"
	KindSession Kind = "session"
	KindBill    Kind = "bill"
)

var prefixes = map[Kind]string{
	KindOrder:   "ORD",
	KindSession: "SES",
	KindBill:    "BIL",
}

// ErrUnknownKind is returned for kinds without a registered prefix.
var ErrUnknownKind = errors.New("unknown sequence kind")

// Store hands out strictly increasing counter values per key. Values are
// never handed out twice, even when the caller fails after receiving one.
type Store interface {
	Increment(ctx context.Context, key string) (int64, error)
}

// Generator formats counter values as PREFIX-YYYYMMDD-NNNN. The counter is
// global per kind, so uniqueness never depends on the date.
type Generator struct {
	store    Store
	logger   apt.Logger
	attempts int
	backoff  time.Duration
	now      func() time.Time
}

func NewGenerator(store Store, logger apt.Logger) *Generator {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Generator{
		store:    store,
		logger:   logger,
		attempts: 3,
		backoff:  50 * time.Millisecond,
		now:      time.Now,
	}
}

// Next returns a fresh identifier for kind. Transient store failures are
// retried; a retry may leave a gap but never repeats a value.
func (g *Generator) Next(ctx context.Context, kind Kind) (string, error) {
	prefix, ok := prefixes[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	var lastErr error
	for attempt := 0; attempt < g.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.backoff * time.Duration(attempt)):
			}
		}

		n, err := g.store.Increment(ctx, string(kind))
		if err == nil {
			return Format(prefix, g.now(), n), nil
		}
		lastErr = err
		g.logger.Debug("sequence increment failed", "kind", string(kind), "attempt", attempt+1, "error", err)
	}

	return "", fmt.Errorf("cannot allocate %s number: %w", kind, lastErr)
}

// Format renders a sequence value.
func Format(prefix string, at time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, at.UTC().Format("20060102"), n)
}

// MemoryStore is an in-process Store for tests and the memory driver.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

func (s *MemoryStore) Increment(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}
