package menu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/appetiteclub/tableside/services/order/internal/fault"
)

const menuItemsResource = "menu-items"

// ClientCatalog reads items from the menu service and keeps them for ttl.
type ClientCatalog struct {
	client *apt.ServiceClient
	logger apt.Logger
	ttl    time.Duration
	lang   language.Tag
	now    func() time.Time

	mu    sync.RWMutex
	items map[uuid.UUID]cachedItem
}

type cachedItem struct {
	item      Item
	fetchedAt time.Time
}

func NewClientCatalog(client *apt.ServiceClient, ttl time.Duration, logger apt.Logger) *ClientCatalog {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &ClientCatalog{
		client: client,
		logger: logger,
		ttl:    ttl,
		lang:   language.English,
		now:    time.Now,
		items:  make(map[uuid.UUID]cachedItem),
	}
}

// SetLanguage selects which localized item name orders snapshot.
func (c *ClientCatalog) SetLanguage(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("invalid menu language %q: %w", lang, err)
	}
	c.lang = tag
	return nil
}

func (c *ClientCatalog) Lookup(ctx context.Context, id uuid.UUID) (Item, error) {
	if id == uuid.Nil {
		return Item{}, fault.InvalidInput("menu item id is required")
	}
	if item, ok := c.cached(id); ok {
		return item, nil
	}
	return c.Refresh(ctx, id)
}

// Refresh fetches id from the menu service regardless of the cache.
func (c *ClientCatalog) Refresh(ctx context.Context, id uuid.UUID) (Item, error) {
	if c.client == nil {
		return Item{}, errors.New("menu client not configured")
	}

	resp, err := c.client.Get(ctx, menuItemsResource, id.String())
	if err != nil {
		var httpErr *apt.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return Item{}, fault.NotFound("menu item %s not found", id)
		}
		return Item{}, fmt.Errorf("cannot fetch menu item %s: %w", id, err)
	}

	var dto menuItemDTO
	if err := rehydrate(resp.Data, &dto); err != nil {
		return Item{}, fmt.Errorf("cannot decode menu item %s: %w", id, err)
	}

	item := dto.toItem(c.lang)
	if item.ID == uuid.Nil {
		item.ID = id
	}

	c.mu.Lock()
	c.items[id] = cachedItem{item: item, fetchedAt: c.now()}
	c.mu.Unlock()

	c.logger.Debug("menu item cached", "menu_item_id", id.String(), "available", item.Available)
	return item, nil
}

// Invalidate drops id from the cache.
func (c *ClientCatalog) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

func (c *ClientCatalog) cached(id uuid.UUID) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.items[id]
	if !ok {
		return Item{}, false
	}
	if c.ttl > 0 && c.now().Sub(entry.fetchedAt) > c.ttl {
		return Item{}, false
	}
	return entry.item, true
}

// menuItemDTO mirrors the menu service payload: localized names and a list
// of prices per currency.
type menuItemDTO struct {
	ID             string            `json:"id"`
	ShortCode      string            `json:"short_code"`
	Name           map[string]string `json:"name"`
	Category       string            `json:"category"`
	Tags           []string          `json:"tags"`
	Active         bool              `json:"active"`
	Prices         []priceDTO        `json:"prices"`
	Customizations []struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	} `json:"customizations"`
}

type priceDTO struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currency_code"`
}

func (d menuItemDTO) toItem(lang language.Tag) Item {
	id, _ := uuid.Parse(d.ID)
	item := Item{
		ID:        id,
		Name:      d.localizedName(lang),
		Category:  d.Category,
		Available: d.Active,
	}
	if item.Category == "" && len(d.Tags) > 0 {
		item.Category = d.Tags[0]
	}
	if len(d.Prices) > 0 {
		item.Price = decimal.NewFromFloat(d.Prices[0].Amount)
	}
	for _, c := range d.Customizations {
		item.Customizations = append(item.Customizations, Customization{
			Name:  c.Name,
			Price: decimal.NewFromFloat(c.Price),
		})
	}
	return item
}

// localizedName picks the name closest to lang, falling back to the short
// code when the item has no usable name.
func (d menuItemDTO) localizedName(lang language.Tag) string {
	keys := make([]string, 0, len(d.Name))
	for k, v := range d.Name {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var tags []language.Tag
	var names []string
	for _, k := range keys {
		tag, err := language.Parse(k)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		names = append(names, d.Name[k])
	}
	if len(tags) == 0 {
		if len(keys) > 0 {
			return d.Name[keys[0]]
		}
		return d.ShortCode
	}

	_, idx, _ := language.NewMatcher(tags).Match(lang)
	return names[idx]
}

func rehydrate(data interface{}, out interface{}) error {
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}
