package kitchen

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/tableside/pkg/enums/role"
	"github.com/appetiteclub/tableside/services/order/internal/order"
)

// MockOrders records transition requests made by the dispatcher.
type MockOrders struct {
	mu             sync.Mutex
	Calls          []order.Status
	TransitionFunc func(ctx context.Context, id uuid.UUID, target order.Status, actor role.Role, reason string) (*order.Order, error)
}

func (m *MockOrders) Transition(ctx context.Context, id uuid.UUID, target order.Status, actor role.Role, reason string) (*order.Order, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, target)
	m.mu.Unlock()
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, id, target, actor, reason)
	}
	o := order.NewOrder()
	o.ID = id
	o.Status = target
	return o, nil
}

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

var fixedNow = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func confirmedOrder(number string) *order.Order {
	confirmedAt := fixedNow.Add(-7 * time.Minute)
	o := order.NewOrder()
	o.Number = number
	o.TableNumber = "4"
	o.SessionID = uuid.New()
	o.Status = order.StatusConfirmed
	o.ConfirmedAt = &confirmedAt
	o.Notes = "birthday table"
	o.Lines = []order.Line{
		{ID: uuid.New(), MenuItemID: uuid.New(), Name: "Burger", Category: "mains", Quantity: 2,
			UnitPrice: decimal.NewFromInt(200), SpecialInstructions: "no onions",
			Customizations: []order.Customization{{Name: "cheese", Price: decimal.NewFromInt(20)}}},
		{ID: uuid.New(), MenuItemID: uuid.New(), Name: "Fries", Category: "sides", Quantity: 3,
			UnitPrice: decimal.NewFromInt(40)},
	}
	return o
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	repo       *FakeTicketRepo
	orders     *MockOrders
	publisher  *MockPublisher
}

func newDispatcherFixture() dispatcherFixture {
	repo := NewFakeTicketRepo()
	orders := &MockOrders{}
	pub := &MockPublisher{}
	d := NewDispatcher(repo, orders, pub, DefaultThresholds, nil)
	d.now = func() time.Time { return fixedNow }
	return dispatcherFixture{dispatcher: d, repo: repo, orders: orders, publisher: pub}
}
