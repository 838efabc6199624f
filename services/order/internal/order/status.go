package order

import (
	"strings"
	"time"

	"github.com/appetiteclub/tableside/pkg/enums/role"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
)

// Status is the lifecycle state of an order. Transitions between statuses
// are decided here and nowhere else.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

var AllStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusServed,
	StatusCompleted,
	StatusRejected,
}

// KitchenStatuses are the statuses shown on the kitchen view.
var KitchenStatuses = []Status{StatusConfirmed, StatusPreparing, StatusReady}

// ParseStatus returns the status named s.
func ParseStatus(s string) (Status, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

type edge struct {
	roles          []role.Role
	reasonRequired bool
	billingOnly    bool
}

func (e edge) allows(r role.Role) bool {
	for _, allowed := range e.roles {
		if allowed.Name == r.Name {
			return true
		}
	}
	return false
}

var edges = map[Status]map[Status]edge{
	StatusPending: {
		StatusConfirmed: {roles: []role.Role{role.Roles.Captain}},
		StatusRejected:  {roles: []role.Role{role.Roles.Captain}},
	},
	StatusConfirmed: {
		StatusPreparing: {roles: []role.Role{role.Roles.Kitchen}},
		StatusRejected:  {roles: []role.Role{role.Roles.Captain}, reasonRequired: true},
	},
	StatusPreparing: {
		StatusReady: {roles: []role.Role{role.Roles.Kitchen}},
	},
	StatusReady: {
		StatusServed: {roles: []role.Role{role.Roles.Captain, role.Roles.Kitchen}},
	},
	StatusServed: {
		StatusCompleted: {roles: []role.Role{role.Roles.Admin}, billingOnly: true},
	},
}

// Next lists the statuses reachable from s.
func Next(s Status) []Status {
	var out []Status
	for _, st := range AllStatuses {
		if _, ok := edges[s][st]; ok {
			out = append(out, st)
		}
	}
	return out
}

// Transition is a request to move an order to Target.
type Transition struct {
	Target Status
	Role   role.Role
	Reason string

	viaBilling bool
}

// canEnter reports whether r may drive any edge into target.
func canEnter(target Status, r role.Role) bool {
	for _, out := range edges {
		if e, ok := out[target]; ok && e.allows(r) {
			return true
		}
	}
	return false
}

// Check decides whether t may be applied to an order in status from. It
// returns noop when the order already sits in the target status and the
// actor could have put it there, so retried requests succeed.
func Check(from Status, t Transition) (noop bool, err error) {
	if from.Terminal() {
		return false, fault.Conflict("order already %s", from)
	}
	if t.Target == StatusCompleted && !t.viaBilling {
		return false, fault.Conflict("orders are completed by billing")
	}

	if t.Target == from {
		if canEnter(t.Target, t.Role) {
			return true, nil
		}
		return false, fault.Forbidden("%s cannot set orders to %s", roleName(t.Role), t.Target)
	}

	e, ok := edges[from][t.Target]
	if !ok {
		return false, fault.Conflict("cannot move order from %s to %s", from, t.Target)
	}
	if !e.allows(t.Role) {
		return false, fault.Forbidden("%s cannot move orders from %s to %s", roleName(t.Role), from, t.Target)
	}
	if e.billingOnly && !t.viaBilling {
		return false, fault.Conflict("orders are completed by billing")
	}
	if e.reasonRequired && strings.TrimSpace(t.Reason) == "" {
		return false, fault.InvalidInput("a reason is required to reject a confirmed order").
			WithDetail("reason", "required", "reason is required")
	}
	return false, nil
}

// Apply returns the order as it would be after t. The input is left
// untouched; changed is false for idempotent retries.
func Apply(o *Order, t Transition, now time.Time) (next *Order, changed bool, err error) {
	noop, err := Check(o.Status, t)
	if err != nil {
		return nil, false, err
	}
	if noop {
		return o, false, nil
	}

	next = o.Clone()
	next.Status = t.Target
	next.UpdatedAt = now
	next.Version = o.Version + 1

	at := now
	switch t.Target {
	case StatusConfirmed:
		next.ConfirmedAt = &at
	case StatusPreparing:
		next.PreparingAt = &at
	case StatusReady:
		next.ReadyAt = &at
	case StatusServed:
		next.ServedAt = &at
	case StatusCompleted:
		next.CompletedAt = &at
	case StatusRejected:
		next.RejectedAt = &at
		next.RejectionReason = strings.TrimSpace(t.Reason)
	}

	return next, true, nil
}

func roleName(r role.Role) string {
	if r.IsZero() {
		return "unknown role"
	}
	return r.Name
}
