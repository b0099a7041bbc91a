package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks where an order sits in its fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusRejected   OrderStatus = "rejected"
	OrderStatusShipped    OrderStatus = "shipped"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusConfirmed,
	OrderStatusRejected,
	OrderStatusShipped,
}

// orderTransitions lists every edge of the lifecycle graph.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusInProgress},
	OrderStatusInProgress: {OrderStatusConfirmed, OrderStatusRejected, OrderStatusPending},
	OrderStatusConfirmed:  {OrderStatusShipped, OrderStatusInProgress},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusRejected || s == OrderStatusShipped
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CanAssign reports whether a fulfiller may be (re)bound in this status.
func (s OrderStatus) CanAssign() bool {
	return s == OrderStatusPending || s == OrderStatusInProgress || s == OrderStatusConfirmed
}

// RequiresAssignment reports whether the status is only reachable through the
// assignment engine rather than a direct status update.
func (s OrderStatus) RequiresAssignment() bool {
	return s == OrderStatusInProgress || s == OrderStatusPending
}

// HasFulfiller reports whether an order in this status must carry a fulfiller.
func (s OrderStatus) HasFulfiller() bool {
	return s != OrderStatusPending
}

// ParseOrderStatus converts raw input into an OrderStatus. Input is trimmed
// and lower-cased so "Confirmed" and "confirmed" resolve to the same state.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
