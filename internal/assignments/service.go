package assignments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/internal/fulfillers"
	"github.com/angelmondragon/tradeflow-backend/internal/orders"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

// Service binds and releases fulfillers on orders.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*models.Order, error)
	Unassign(ctx context.Context, input UnassignInput) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID, actor visibility.Caller) ([]models.OrderAssignment, error)
}

// AssignInput binds FulfillerID to OrderID on behalf of Actor.
type AssignInput struct {
	OrderID     uuid.UUID
	FulfillerID uuid.UUID
	Actor       visibility.Caller
}

// UnassignInput releases the active fulfiller of OrderID.
type UnassignInput struct {
	OrderID uuid.UUID
	Actor   visibility.Caller
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the assignment engine.
type ServiceParams struct {
	Orders      orders.Repository
	Fulfillers  fulfillers.Repository
	Assignments Repository
	Tx          txRunner
	Policy      visibility.Policy
	Clock       func() time.Time
}

type service struct {
	orders      orders.Repository
	fulfillers  fulfillers.Repository
	assignments Repository
	tx          txRunner
	policy      visibility.Policy
	now         func() time.Time
}

// errUnchanged rolls back a transaction whose request turned out to be a no-op.
var errUnchanged = errors.New("assignment unchanged")

// NewService builds the assignment engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Fulfillers == nil {
		return nil, fmt.Errorf("fulfillers repository required")
	}
	if params.Assignments == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		orders:      params.Orders,
		fulfillers:  params.Fulfillers,
		assignments: params.Assignments,
		tx:          params.Tx,
		policy:      params.Policy,
		now:         clock,
	}, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Order, error) {
	actor := input.Actor
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if actor.Role != enums.RoleSuperAdmin && actor.Role != enums.RoleManufacturer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot assign fulfillers")
	}
	if input.FulfillerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fulfiller required").
			WithDetails(map[string]string{"fulfiller_id": "is required"})
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)

		revision, err := orderRepo.NextRevision(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order revision")
		}
		order, err := orders.FindOrder(ctx, orderRepo, input.OrderID)
		if err != nil {
			return err
		}
		if err := s.authorizeAssign(order, actor); err != nil {
			return err
		}
		if !order.Status.CanAssign() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot assign a %s order", order.Status))
		}
		fulfiller, err := fulfillers.Resolve(ctx, s.fulfillers.WithTx(tx), input.FulfillerID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusInProgress && order.IsAssignedTo(fulfiller.ID) {
			result = order
			return errUnchanged
		}

		now := s.now().UTC()
		assignmentRepo := s.assignments.WithTx(tx)
		if _, err := assignmentRepo.DeactivateActive(ctx, order.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate assignment")
		}
		actorID := actor.ID
		if err := assignmentRepo.Create(ctx, &models.OrderAssignment{
			OrderID:          order.ID,
			FulfillerID:      fulfiller.ID,
			FulfillerType:    fulfiller.Type,
			AssignedByUserID: &actorID,
			AssignedAt:       now,
			Active:           true,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}

		fulfillerID := fulfiller.ID
		order.AssignedFulfillerID = &fulfillerID
		order.AssignedAt = &now
		order.Status = enums.OrderStatusInProgress
		order.Revision = revision
		order.UpdatedAt = now
		updates := map[string]any{
			"status":                order.Status,
			"assigned_fulfiller_id": fulfillerID,
			"assigned_at":           now,
			"revision":              revision,
			"updated_at":            now,
		}
		if actor.Role == enums.RoleManufacturer && order.IsUnclaimed() {
			owner := actor.ID
			order.OwnerManufacturerID = &owner
			updates["owner_manufacturer_id"] = owner
		}
		if err := order.CheckAssignmentInvariant(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assignment invariant")
		}
		if err := orderRepo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign order")
		}
		result = order
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return nil, err
	}
	return result.Clone(), nil
}

func (s *service) Unassign(ctx context.Context, input UnassignInput) (*models.Order, error) {
	actor := input.Actor
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if actor.Role != enums.RoleSuperAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can unassign orders")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)

		revision, err := orderRepo.NextRevision(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order revision")
		}
		order, err := orders.FindOrder(ctx, orderRepo, input.OrderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusPending) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot unassign a %s order", order.Status))
		}

		now := s.now().UTC()
		if _, err := s.assignments.WithTx(tx).DeactivateActive(ctx, order.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate assignment")
		}
		if err := orderRepo.Update(ctx, order.ID, map[string]any{
			"status":                enums.OrderStatusPending,
			"assigned_fulfiller_id": nil,
			"assigned_at":           nil,
			"revision":              revision,
			"updated_at":            now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unassign order")
		}
		order.Status = enums.OrderStatusPending
		order.AssignedFulfillerID = nil
		order.AssignedAt = nil
		order.Revision = revision
		order.UpdatedAt = now
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result.Clone(), nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID, actor visibility.Caller) ([]models.OrderAssignment, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	order, err := orders.FindOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	if !visibility.VisibleToCaller(order, actor, s.policy) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	rows, err := s.assignments.ListForOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	return rows, nil
}

// authorizeAssign lets administrators assign anything they can see and
// manufacturers assign orders in their incoming view.
func (s *service) authorizeAssign(order *models.Order, actor visibility.Caller) error {
	if !visibility.VisibleToCaller(order, actor, s.policy) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if actor.Role == enums.RoleSuperAdmin {
		return nil
	}
	if !visibility.Visible(order, actor, enums.OrderViewIncoming, s.policy) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to assign this order")
	}
	return nil
}
