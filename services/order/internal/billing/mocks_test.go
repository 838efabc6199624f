package billing

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/tableside/pkg/enums/role"
	"github.com/appetiteclub/tableside/services/order/internal/menu"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/appetiteclub/tableside/services/order/internal/sequence"
	"github.com/appetiteclub/tableside/services/order/internal/tables"
)

// MockPublisher counts published messages per topic.
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string]int
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messages == nil {
		m.messages = make(map[string]int)
	}
	m.messages[topic]++
	return nil
}

func (m *MockPublisher) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[topic]
}

// MockOrders wraps the order service so tests can fail completion.
type MockOrders struct {
	*order.Service
	CompleteFunc func(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

func (m *MockOrders) Complete(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, id)
	}
	return m.Service.Complete(ctx, id)
}

// MockOrderRepo wraps the in-memory order store so tests can stall or
// fail order creation.
type MockOrderRepo struct {
	*order.FakeRepo
	CreateFunc func(ctx context.Context, o *order.Order) error
}

func (m *MockOrderRepo) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	return m.FakeRepo.Create(ctx, o)
}

var (
	burgerID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	pizzaID  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	friesID  = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	thaliID  = uuid.MustParse("55555555-5555-5555-5555-555555555555")
)

type billerFixture struct {
	biller      *Biller
	repo        *FakeRepo
	orders      *MockOrders
	orderRepo   *MockOrderRepo
	coordinator *tables.Coordinator
	tables      *tables.FakeTableRepo
	publisher   *MockPublisher
}

func newBillerFixture() billerFixture {
	numbers := sequence.NewGenerator(sequence.NewMemoryStore(), nil)

	acTable := tables.NewTable("6")
	acTable.Zone = tables.ZoneAC
	tableRepo := tables.NewFakeTableRepo(tables.NewTable("1"), acTable)
	coordinator := tables.NewCoordinator(tableRepo, tables.NewFakeSessionRepo(), numbers, nil, nil)

	catalog := menu.NewStaticCatalog(
		menu.Item{ID: burgerID, Name: "Burger", Category: "mains", Price: decimal.NewFromInt(180), Available: true},
		menu.Item{ID: pizzaID, Name: "Pizza", Category: "mains", Price: decimal.NewFromInt(280), Available: true},
		menu.Item{ID: friesID, Name: "Fries", Category: "sides", Price: decimal.NewFromInt(40), Available: true},
		menu.Item{ID: thaliID, Name: "Thali", Category: "mains", Price: decimal.NewFromInt(240), Available: true},
	)
	orderRepo := &MockOrderRepo{FakeRepo: order.NewFakeRepo()}
	orders := &MockOrders{Service: order.NewService(order.ServiceDeps{
		Repo:     orderRepo,
		Sessions: coordinator,
		Catalog:  catalog,
		Numbers:  numbers,
	})}

	repo := NewFakeRepo()
	pub := &MockPublisher{}
	biller := NewBiller(BillerDeps{
		Repo:        repo,
		Orders:      orders,
		Coordinator: coordinator,
		Numbers:     numbers,
		Publisher:   pub,
	})

	return billerFixture{
		biller:      biller,
		repo:        repo,
		orders:      orders,
		orderRepo:   orderRepo,
		coordinator: coordinator,
		tables:      tableRepo,
		publisher:   pub,
	}
}

// placeOrder creates an order on table and drives it up to status.
func (f billerFixture) placeOrder(t *testing.T, table string, status order.Status, items ...order.LineRequest) *order.Order {
	t.Helper()
	ctx := context.Background()
	if len(items) == 0 {
		items = []order.LineRequest{
			{MenuItemID: burgerID, Quantity: 2},
			{MenuItemID: pizzaID, Quantity: 1},
			{MenuItemID: friesID, Quantity: 3},
			{MenuItemID: thaliID, Quantity: 1},
		}
	}
	o, err := f.orders.Create(ctx, order.CreateRequest{TableNumber: table, Items: items})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	steps := []struct {
		status order.Status
		actor  role.Role
	}{
		{order.StatusConfirmed, role.Roles.Captain},
		{order.StatusPreparing, role.Roles.Kitchen},
		{order.StatusReady, role.Roles.Kitchen},
		{order.StatusServed, role.Roles.Captain},
	}
	if status == order.StatusRejected {
		o, err = f.orders.Transition(ctx, o.ID, order.StatusRejected, role.Roles.Captain, "")
		if err != nil {
			t.Fatalf("Transition(rejected) error = %v", err)
		}
		return o
	}
	for _, s := range steps {
		if o.Status == status {
			break
		}
		o, err = f.orders.Transition(ctx, o.ID, s.status, s.actor, "")
		if err != nil {
			t.Fatalf("Transition(%s) error = %v", s.status, err)
		}
	}
	return o
}
