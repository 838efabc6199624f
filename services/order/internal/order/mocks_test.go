package order

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/tableside/pkg/enums/role"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/menu"
	"github.com/appetiteclub/tableside/services/order/internal/sequence"
	"github.com/appetiteclub/tableside/services/order/internal/tables"
)

// MockPublisher records published order events.
type MockPublisher struct {
	mu          sync.Mutex
	events      []event.OrderEvent
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	var evt event.OrderEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *MockPublisher) Count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

// MockListener records status notifications.
type MockListener struct {
	mu                     sync.Mutex
	seen                   []Status
	OrderStatusChangedFunc func(ctx context.Context, o *Order, actor role.Role) error
}

func (m *MockListener) OrderStatusChanged(ctx context.Context, o *Order, actor role.Role) error {
	if m.OrderStatusChangedFunc != nil {
		return m.OrderStatusChangedFunc(ctx, o, actor)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, o.Status)
	return nil
}

// Calls counts notifications for confirmed orders.
func (m *MockListener) Calls() int {
	return m.CallsFor(StatusConfirmed)
}

func (m *MockListener) CallsFor(status Status) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.seen {
		if s == status {
			n++
		}
	}
	return n
}

// MockRepo wraps a FakeRepo and lets tests intercept updates.
type MockRepo struct {
	*FakeRepo
	CreateFunc func(ctx context.Context, o *Order) error
	UpdateFunc func(ctx context.Context, o *Order, expectStatus Status, expectVersion int64) error
}

func (m *MockRepo) Create(ctx context.Context, o *Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	return m.FakeRepo.Create(ctx, o)
}

func (m *MockRepo) Update(ctx context.Context, o *Order, expectStatus Status, expectVersion int64) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, o, expectStatus, expectVersion)
	}
	return m.FakeRepo.Update(ctx, o, expectStatus, expectVersion)
}

var (
	burgerID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	pizzaID  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	friesID  = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	soupID   = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	thaliID  = uuid.MustParse("55555555-5555-5555-5555-555555555555")
)

func testCatalog() *menu.StaticCatalog {
	return menu.NewStaticCatalog(
		menu.Item{ID: burgerID, Name: "Burger", Category: "mains", Price: decimal.NewFromInt(180), Available: true,
			Customizations: []menu.Customization{{Name: "cheese", Price: decimal.NewFromInt(20)}}},
		menu.Item{ID: pizzaID, Name: "Pizza", Category: "mains", Price: decimal.NewFromInt(280), Available: true},
		menu.Item{ID: friesID, Name: "Fries", Category: "sides", Price: decimal.NewFromInt(40), Available: true},
		menu.Item{ID: soupID, Name: "Soup", Category: "starters", Price: decimal.NewFromInt(90), Available: false},
		menu.Item{ID: thaliID, Name: "Thali", Category: "mains", Price: decimal.NewFromInt(240), Available: true},
	)
}

type serviceFixture struct {
	service     *Service
	repo        *MockRepo
	sessions    *tables.FakeSessionRepo
	coordinator *tables.Coordinator
	publisher   *MockPublisher
	listener    *MockListener
}

func newServiceFixture() serviceFixture {
	numbers := sequence.NewGenerator(sequence.NewMemoryStore(), nil)
	sessions := tables.NewFakeSessionRepo()
	coordinator := tables.NewCoordinator(
		tables.NewFakeTableRepo(tables.NewTable("1"), tables.NewTable("2")),
		sessions, numbers, nil, nil)
	repo := &MockRepo{FakeRepo: NewFakeRepo()}
	pub := &MockPublisher{}
	listener := &MockListener{}

	svc := NewService(ServiceDeps{
		Repo:      repo,
		Sessions:  coordinator,
		Catalog:   testCatalog(),
		Numbers:   numbers,
		Publisher: pub,
	})
	svc.OnStatusChange(listener)

	return serviceFixture{
		service:     svc,
		repo:        repo,
		sessions:    sessions,
		coordinator: coordinator,
		publisher:   pub,
		listener:    listener,
	}
}

func scenarioRequest(table string) CreateRequest {
	return CreateRequest{
		TableNumber: table,
		Items: []LineRequest{
			{MenuItemID: burgerID, Quantity: 2},
			{MenuItemID: pizzaID, Quantity: 1},
			{MenuItemID: friesID, Quantity: 3},
			{MenuItemID: thaliID, Quantity: 1},
		},
	}
}
