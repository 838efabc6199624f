package order

import (
	"context"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/appetiteclub/tableside/services/order/internal/fault"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind fault.Kind
		check    func(t *testing.T, q Query)
	}{
		{
			name: "defaults",
			raw:  "",
			check: func(t *testing.T, q Query) {
				if q.Page != 1 || q.Limit != DefaultLimit || q.Sort != SortCreatedAt || !q.Desc {
					t.Errorf("defaults = %+v", q)
				}
			},
		},
		{
			name: "statusList",
			raw:  "status=pending,%20confirmed",
			check: func(t *testing.T, q Query) {
				if len(q.Statuses) != 2 || q.Statuses[1] != StatusConfirmed {
					t.Errorf("Statuses = %v", q.Statuses)
				}
			},
		},
		{
			name: "kitchenView",
			raw:  "view=kitchen",
			check: func(t *testing.T, q Query) {
				if len(q.Statuses) != 3 {
					t.Errorf("Statuses = %v, want kitchen statuses", q.Statuses)
				}
			},
		},
		{
			name: "kitchenViewNarrowsStatus",
			raw:  "view=kitchen&status=pending,ready",
			check: func(t *testing.T, q Query) {
				if len(q.Statuses) != 1 || q.Statuses[0] != StatusReady {
					t.Errorf("Statuses = %v, want [ready]", q.Statuses)
				}
			},
		},
		{
			name: "limitClamped",
			raw:  "limit=500&page=3",
			check: func(t *testing.T, q Query) {
				if q.Limit != MaxLimit || q.Page != 3 || q.Offset() != 200 {
					t.Errorf("paging = %+v", q)
				}
			},
		},
		{
			name: "pageClamped",
			raw:  "page=9223372036854775807&limit=100",
			check: func(t *testing.T, q Query) {
				if q.Page != MaxPage || q.Offset() != (MaxPage-1)*MaxLimit {
					t.Errorf("paging = %+v, offset %d", q, q.Offset())
				}
			},
		},
		{
			name: "dateOnlyUpperBoundCoversDay",
			raw:  "from=2026-03-01&to=2026-03-01",
			check: func(t *testing.T, q Query) {
				if !q.To.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
					t.Errorf("To = %v", q.To)
				}
			},
		},
		{
			name: "sortAlias",
			raw:  "sort=order_number&dir=desc",
			check: func(t *testing.T, q Query) {
				if q.Sort != SortNumber || !q.Desc {
					t.Errorf("sort = %s desc %v", q.Sort, q.Desc)
				}
			},
		},
		{name: "unknownStatus", raw: "status=cooking", wantKind: fault.KindInvalidInput},
		{name: "unknownView", raw: "view=bar", wantKind: fault.KindInvalidInput},
		{name: "badDate", raw: "from=yesterday", wantKind: fault.KindInvalidInput},
		{name: "invertedRange", raw: "from=2026-03-02&to=2026-03-01", wantKind: fault.KindInvalidInput},
		{name: "badLimit", raw: "limit=-1", wantKind: fault.KindInvalidInput},
		{name: "badSort", raw: "sort=name", wantKind: fault.KindInvalidInput},
		{name: "badDir", raw: "dir=up", wantKind: fault.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.raw)
			if err != nil {
				t.Fatalf("url.ParseQuery() error = %v", err)
			}
			q, err := ParseQuery(values)
			if got := fault.KindOf(err); got != tt.wantKind {
				t.Fatalf("ParseQuery() error = %v, want kind %q", err, tt.wantKind)
			}
			if tt.check != nil {
				tt.check(t, q)
			}
		})
	}
}

func TestQueryMatches(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o := NewOrder()
	o.TableNumber = "4"
	o.Status = StatusReady
	o.CreatedAt = at

	from := at
	to := at
	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{name: "noFilters", q: Query{}, want: true},
		{name: "statusHit", q: Query{Statuses: []Status{StatusPending, StatusReady}}, want: true},
		{name: "statusMiss", q: Query{Statuses: []Status{StatusPending}}, want: false},
		{name: "tableMiss", q: Query{TableNumber: "5"}, want: false},
		{name: "fromInclusive", q: Query{From: &from}, want: true},
		{name: "toExclusive", q: Query{To: &to}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Matches(o); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFakeRepoListPastLastPage(t *testing.T) {
	repo := NewFakeRepo()
	repo.Put(NewOrder())
	orders, total, err := repo.List(context.Background(), Query{Page: math.MaxInt, Limit: MaxLimit}.Normalize())
	if err != nil || total != 1 || len(orders) != 0 {
		t.Errorf("List() = %d orders, total %d, err %v; want empty page of 1", len(orders), total, err)
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage(nil, 41, Query{Page: 2, Limit: 20})
	if p.Pages != 3 || p.Orders == nil {
		t.Errorf("NewPage() = %+v, want 3 pages and empty slice", p)
	}
}
