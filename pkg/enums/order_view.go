package enums

import (
	"fmt"
	"strings"
)

// OrderView selects one of the order listings available to a role.
type OrderView string

const (
	OrderViewOwn      OrderView = "own"
	OrderViewIncoming OrderView = "incoming"
	OrderViewAll      OrderView = "all"
	OrderViewAssigned OrderView = "assigned"
)

var validOrderViews = []OrderView{
	OrderViewOwn,
	OrderViewIncoming,
	OrderViewAll,
	OrderViewAssigned,
}

var viewsByRole = map[Role][]OrderView{
	RoleAgent:        {OrderViewOwn},
	RoleManufacturer: {OrderViewOwn, OrderViewIncoming},
	RoleSuperAdmin:   {OrderViewAll},
	RoleTruckOwner:   {OrderViewAssigned},
	RoleDriver:       {OrderViewAssigned},
}

// String implements fmt.Stringer.
func (v OrderView) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OrderView.
func (v OrderView) IsValid() bool {
	for _, candidate := range validOrderViews {
		if candidate == v {
			return true
		}
	}
	return false
}

// ViewsFor returns the views a role may request, default first.
func ViewsFor(role Role) []OrderView {
	views := viewsByRole[role]
	out := make([]OrderView, len(views))
	copy(out, views)
	return out
}

// DefaultView returns the view used when a caller does not pick one.
func DefaultView(role Role) OrderView {
	if views := viewsByRole[role]; len(views) > 0 {
		return views[0]
	}
	return ""
}

// AllowsView reports whether role may request view.
func (r Role) AllowsView(view OrderView) bool {
	for _, candidate := range viewsByRole[r] {
		if candidate == view {
			return true
		}
	}
	return false
}

// ParseOrderView converts raw input into an OrderView.
func ParseOrderView(value string) (OrderView, error) {
	normalized := OrderView(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid order view %q", value)
}
