package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/tableside/services/order/internal/fault"
)

// Item is the slice of a menu entry an order needs: enough to snapshot the
// name and price at ordering time.
type Item struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Price          decimal.Decimal `json:"price"`
	Available      bool            `json:"available"`
	Customizations []Customization `json:"customizations,omitempty"`
}

// Customization is an optional add-on with its own price.
type Customization struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// FindCustomization returns the add-on named name.
func (i Item) FindCustomization(name string) (Customization, bool) {
	for _, c := range i.Customizations {
		if c.Name == name {
			return c, true
		}
	}
	return Customization{}, false
}

// Catalog resolves menu items. Lookup returns a fault.NotFound error for
// unknown ids; availability is reported on the item, not as an error.
type Catalog interface {
	Lookup(ctx context.Context, id uuid.UUID) (Item, error)
}

// StaticCatalog serves a fixed set of items.
type StaticCatalog struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Item
}

func NewStaticCatalog(items ...Item) *StaticCatalog {
	c := &StaticCatalog{items: make(map[uuid.UUID]Item)}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

func (c *StaticCatalog) Lookup(ctx context.Context, id uuid.UUID) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		return Item{}, fault.NotFound("menu item %s not found", id)
	}
	return item, nil
}

// Put adds or replaces an item.
func (c *StaticCatalog) Put(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
}

// Items returns every item in the catalog.
func (c *StaticCatalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	return out
}

// LoadStaticCatalog reads the "menu" list of seed.json in fsys.
func LoadStaticCatalog(fsys fs.FS) (*StaticCatalog, error) {
	raw, err := fs.ReadFile(fsys, "seed.json")
	if err != nil {
		return nil, fmt.Errorf("read seed.json: %w", err)
	}

	var doc struct {
		Menu []Item `json:"menu"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode menu seed: %w", err)
	}

	return NewStaticCatalog(doc.Menu...), nil
}
