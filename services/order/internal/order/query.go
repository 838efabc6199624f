package order

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/services/order/internal/fault"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps Offset well inside int range.
	MaxPage = 100000
)

const (
	SortCreatedAt = "created_at"
	SortNumber    = "number"
	SortTotal     = "total"
	SortStatus    = "status"
)

var sortKeys = map[string]string{
	SortCreatedAt:  SortCreatedAt,
	"order_number": SortNumber,
	SortNumber:     SortNumber,
	SortTotal:      SortTotal,
	SortStatus:     SortStatus,
}

// Query filters and pages an order listing. From is inclusive, To exclusive.
type Query struct {
	Statuses    []Status
	TableNumber string
	SessionID   *uuid.UUID
	From        *time.Time
	To          *time.Time
	Page        int
	Limit       int
	Sort        string
	Desc        bool
}

// Page is one page of a listing.
type Page struct {
	Orders []*Order `json:"orders"`
	Total  int64    `json:"total"`
	Page   int      `json:"page"`
	Limit  int      `json:"limit"`
	Pages  int      `json:"pages"`
}

func NewPage(orders []*Order, total int64, q Query) Page {
	pages := 0
	if q.Limit > 0 {
		pages = int((total + int64(q.Limit) - 1) / int64(q.Limit))
	}
	if orders == nil {
		orders = []*Order{}
	}
	return Page{Orders: orders, Total: total, Page: q.Page, Limit: q.Limit, Pages: pages}
}

func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Normalize fills defaults and clamps paging.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Sort == "" {
		q.Sort = SortCreatedAt
		q.Desc = true
	}
	return q
}

// Matches reports whether o passes the filters of q.
func (q Query) Matches(o *Order) bool {
	if len(q.Statuses) > 0 {
		found := false
		for _, s := range q.Statuses {
			if o.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.TableNumber != "" && o.TableNumber != q.TableNumber {
		return false
	}
	if q.SessionID != nil && o.SessionID != *q.SessionID {
		return false
	}
	if q.From != nil && o.CreatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && !o.CreatedAt.Before(*q.To) {
		return false
	}
	return true
}

// ParseQuery reads listing parameters: status (comma separated), table,
// from, to, view=kitchen, page, limit, sort and dir.
func ParseQuery(values url.Values) (Query, error) {
	var q Query

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			st, ok := ParseStatus(part)
			if !ok {
				return q, fault.InvalidInput("unknown status %q", strings.TrimSpace(part)).
					WithDetail("status", "invalid", "unknown status")
			}
			q.Statuses = append(q.Statuses, st)
		}
	}

	if view := strings.TrimSpace(values.Get("view")); view != "" {
		if view != "kitchen" {
			return q, fault.InvalidInput("unknown view %q", view).WithDetail("view", "invalid", "only kitchen is supported")
		}
		q.Statuses = kitchenView(q.Statuses)
	}

	q.TableNumber = strings.TrimSpace(values.Get("table"))

	if raw := strings.TrimSpace(values.Get("session_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return q, fault.InvalidInput("invalid session_id").WithDetail("session_id", "invalid", "must be a UUID")
		}
		q.SessionID = &id
	}

	from, err := parseBound(values.Get("from"), false)
	if err != nil {
		return q, fault.InvalidInput("invalid from date").WithDetail("from", "invalid", err.Error())
	}
	to, err := parseBound(values.Get("to"), true)
	if err != nil {
		return q, fault.InvalidInput("invalid to date").WithDetail("to", "invalid", err.Error())
	}
	if from != nil && to != nil && !from.Before(*to) {
		return q, fault.InvalidInput("from must be before to")
	}
	q.From, q.To = from, to

	if q.Page, err = parsePositive(values.Get("page")); err != nil {
		return q, fault.InvalidInput("invalid page").WithDetail("page", "invalid", err.Error())
	}
	if q.Limit, err = parsePositive(values.Get("limit")); err != nil {
		return q, fault.InvalidInput("invalid limit").WithDetail("limit", "invalid", err.Error())
	}

	if raw := strings.ToLower(strings.TrimSpace(values.Get("sort"))); raw != "" {
		key, ok := sortKeys[raw]
		if !ok {
			return q, fault.InvalidInput("unknown sort key %q", raw).WithDetail("sort", "invalid", "unknown sort key")
		}
		q.Sort = key
		q.Desc = key == SortCreatedAt
	}
	switch strings.ToLower(strings.TrimSpace(values.Get("dir"))) {
	case "":
	case "asc":
		q.Desc = false
	case "desc":
		q.Desc = true
	default:
		return q, fault.InvalidInput("dir must be asc or desc").WithDetail("dir", "invalid", "must be asc or desc")
	}

	return q.Normalize(), nil
}

// kitchenView narrows requested statuses to the kitchen statuses. With no
// request it returns all of them; an empty intersection yields a filter
// that matches nothing.
func kitchenView(requested []Status) []Status {
	if len(requested) == 0 {
		return append([]Status(nil), KitchenStatuses...)
	}
	var out []Status
	for _, r := range requested {
		for _, k := range KitchenStatuses {
			if r == k {
				out = append(out, r)
			}
		}
	}
	if len(out) == 0 {
		return []Status{Status("none")}
	}
	return out
}

// parseBound accepts RFC3339 or YYYY-MM-DD. A date-only upper bound covers
// the whole day.
func parseBound(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("use RFC3339 or YYYY-MM-DD")
	}
	if upper {
		d = d.AddDate(0, 0, 1)
	}
	return &d, nil
}

func parsePositive(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}
