// Package visibility decides which orders a caller may see. Every function is
// pure: inputs are never mutated and results depend only on the arguments.
package visibility

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

// Caller is the identity resolved for a single request.
type Caller struct {
	ID   uuid.UUID
	Role enums.Role
}

// Validate ensures the caller carries a usable identity.
func (c Caller) Validate() error {
	if c.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity missing")
	}
	if !c.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("unknown role %q", c.Role))
	}
	return nil
}

// Policy holds the configurable visibility rules.
type Policy struct {
	// OpenMarketplace exposes unclaimed, unassigned orders in every
	// manufacturer's incoming view.
	OpenMarketplace bool
	// OwnerScopedIncoming limits claimed orders in the incoming view to the
	// ones the caller owns. Off, every order the caller did not place shows up.
	OwnerScopedIncoming bool
}

// PolicyFor builds the visibility policy from the order settings.
func PolicyFor(cfg config.OrdersConfig) Policy {
	return Policy{
		OpenMarketplace:     cfg.OpenMarketplace,
		OwnerScopedIncoming: cfg.OwnerScopedIncoming,
	}
}

// ResolveView validates the requested view for the caller's role, falling back
// to the role's default when none is given.
func ResolveView(caller Caller, requested string) (enums.OrderView, error) {
	if strings.TrimSpace(requested) == "" {
		view := enums.DefaultView(caller.Role)
		if view == "" {
			return "", pkgerrors.New(pkgerrors.CodeForbidden, "role has no order views")
		}
		return view, nil
	}
	view, err := enums.ParseOrderView(requested)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid view").
			WithDetails(map[string]string{"view": "must be one of own, incoming, all, assigned"})
	}
	if !caller.Role.AllowsView(view) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("view %s not available to %s", view, caller.Role))
	}
	return view, nil
}

// Visible reports whether order belongs to the caller's view.
func Visible(order *models.Order, caller Caller, view enums.OrderView, policy Policy) bool {
	if order == nil || !caller.Role.AllowsView(view) {
		return false
	}
	switch view {
	case enums.OrderViewAll:
		return true
	case enums.OrderViewOwn:
		return order.PlacedBy == caller.ID
	case enums.OrderViewIncoming:
		if order.PlacedBy == caller.ID {
			return false
		}
		if order.OwnerManufacturerID == nil {
			return policy.OpenMarketplace && order.AssignedFulfillerID == nil
		}
		return !policy.OwnerScopedIncoming || *order.OwnerManufacturerID == caller.ID
	case enums.OrderViewAssigned:
		return order.IsAssignedTo(caller.ID)
	default:
		return false
	}
}

// VisibleToCaller reports whether order appears in any view of the caller's role.
func VisibleToCaller(order *models.Order, caller Caller, policy Policy) bool {
	for _, view := range enums.ViewsFor(caller.Role) {
		if Visible(order, caller, view, policy) {
			return true
		}
	}
	return false
}

// Filter returns copies of the orders in the caller's view, preserving order.
func Filter(orders []models.Order, caller Caller, view enums.OrderView, policy Policy) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for idx := range orders {
		if Visible(&orders[idx], caller, view, policy) {
			out = append(out, *orders[idx].Clone())
		}
	}
	return out
}
