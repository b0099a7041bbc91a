package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

// DefaultChangeBatch bounds ChangesSince when the caller passes no limit.
const DefaultChangeBatch = 500

// Service exposes the order store operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	List(ctx context.Context, input ListInput) (*OrderList, error)
	Get(ctx context.Context, id uuid.UUID, caller visibility.Caller) (*models.Order, error)
	SetStatus(ctx context.Context, input SetStatusInput) (*models.Order, error)
	Remove(ctx context.Context, input RemoveInput) error
	ChangesSince(ctx context.Context, revision int64, limit int) (*types.OrderChanges, error)
	HeadRevision(ctx context.Context) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo  Repository
	Tx    txRunner
	Rules config.OrdersConfig
	Clock func() time.Time
}

type service struct {
	repo   Repository
	tx     txRunner
	rules  config.OrdersConfig
	policy visibility.Policy
	now    func() time.Time
}

// NewService builds the order store service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		rules:  params.Rules,
		policy: visibility.PolicyFor(params.Rules),
		now:    clock,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if err := input.Caller.Validate(); err != nil {
		return nil, err
	}
	if !input.Caller.Role.CanPlaceOrders() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot place orders")
	}

	now := s.now().UTC()
	deliveryDate, err := ValidateDraft(input.Draft, s.rules, now)
	if err != nil {
		return nil, err
	}
	draft := input.Draft
	if draft.OwnerManufacturerID != nil && *draft.OwnerManufacturerID == input.Caller.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order draft is invalid").
			WithDetails(map[string]string{"owner_manufacturer_id": "must not be the caller"})
	}

	order := &models.Order{
		PlacedBy:              input.Caller.ID,
		PlacedByRole:          input.Caller.Role,
		OwnerManufacturerID:   draft.OwnerManufacturerID,
		Status:                enums.OrderStatusPending,
		DeliveryAddress:       strings.TrimSpace(draft.DeliveryAddress),
		PhoneNumber:           draft.PhoneNumber,
		EstimatedDeliveryDate: deliveryDate,
		SelectedPaymentOption: strings.TrimSpace(draft.SelectedPaymentOption),
		OrderDate:             now.Truncate(time.Microsecond),
		Items:                 make([]models.OrderItem, 0, len(draft.Items)),
	}
	if method := strings.TrimSpace(draft.PaymentMethod); method != "" {
		order.PaymentMethod, _ = enums.ParsePaymentMethod(method)
	}
	for _, item := range draft.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductRef: strings.TrimSpace(item.ProductRef),
			Name:       strings.TrimSpace(item.Name),
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		})
	}
	order.RecomputeTotal()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		revision, err := repo.NextRevision(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order revision")
		}
		order.Revision = revision
		order.CreatedRevision = revision
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order.Clone(), nil
}

func (s *service) List(ctx context.Context, input ListInput) (*OrderList, error) {
	caller := input.Caller
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	view, err := visibility.ResolveView(caller, input.View)
	if err != nil {
		return nil, err
	}
	if input.OwnerID != nil && !canFilterByOwner(caller, *input.OwnerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "owner filter not available")
	}
	if input.SinceRevision < 0 {
		return nil, pkgerrors.Invalid("since_revision", "must not be negative")
	}

	filter := ListFilter{
		Caller:        caller,
		View:          view,
		Policy:        s.policy,
		OwnerID:       input.OwnerID,
		SinceRevision: input.SinceRevision,
		Limit:         pagination.LimitWithBuffer(input.Limit),
	}
	if input.SinceRevision == 0 {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		filter.Cursor = cursor
	}

	head, err := s.repo.HeadRevision(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read head revision")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	rows = visibility.Filter(rows, caller, view, s.policy)

	result := &OrderList{HeadRevision: head}
	if input.SinceRevision > 0 {
		rows = upToRevision(rows, head)
		page, more := pagination.Trim(rows, input.Limit)
		if more {
			result.HeadRevision = page[len(page)-1].Revision
		}
		result.Orders = page
		return result, nil
	}

	result.Orders, result.NextCursor = pagination.Next(rows, input.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{At: o.OrderDate, ID: o.ID}
	})
	return result, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, caller visibility.Caller) (*models.Order, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	order, err := FindOrder(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !visibility.VisibleToCaller(order, caller, s.policy) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) SetStatus(ctx context.Context, input SetStatusInput) (*models.Order, error) {
	if err := input.Actor.Validate(); err != nil {
		return nil, err
	}
	target, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
			WithDetails(map[string]string{"status": "must be one of pending, in_progress, confirmed, rejected, shipped"})
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		revision, err := repo.NextRevision(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order revision")
		}
		order, err := FindOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !visibility.VisibleToCaller(order, input.Actor, s.policy) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !CanManage(order, input.Actor) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to update this order")
		}
		if target.RequiresAssignment() {
			return invalidTransition(order.Status, target).
				WithDetails(map[string]string{"status": fmt.Sprintf("%s is set by assigning or unassigning a fulfiller", target)})
		}
		if !order.Status.CanTransitionTo(target) {
			return invalidTransition(order.Status, target)
		}

		now := s.now().UTC()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":     target,
			"revision":   revision,
			"updated_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = target
		order.Revision = revision
		order.UpdatedAt = now
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

func (s *service) Remove(ctx context.Context, input RemoveInput) error {
	if err := input.Actor.Validate(); err != nil {
		return err
	}
	if input.Actor.Role != enums.RoleSuperAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can remove orders")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Delete(ctx, input.OrderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove order")
		}
		return nil
	})
}

func (s *service) ChangesSince(ctx context.Context, revision int64, limit int) (*types.OrderChanges, error) {
	if revision < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "revision must not be negative")
	}
	if limit <= 0 {
		limit = DefaultChangeBatch
	}

	head, err := s.repo.HeadRevision(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read head revision")
	}
	if head <= revision {
		return &types.OrderChanges{Orders: []models.Order{}, HeadRevision: head}, nil
	}
	rows, err := s.repo.ChangedSince(ctx, revision, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load changed orders")
	}
	rows = upToRevision(rows, head)
	if len(rows) > limit {
		rows = rows[:limit]
		head = rows[limit-1].Revision
	}
	return &types.OrderChanges{Orders: rows, HeadRevision: head}, nil
}

func (s *service) HeadRevision(ctx context.Context) (int64, error) {
	head, err := s.repo.HeadRevision(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read head revision")
	}
	return head, nil
}

// FindOrder loads an order and maps a missing row to a not found error.
func FindOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// CanManage reports whether actor may move the order through its lifecycle:
// administrators, the owning manufacturer and the assigned fulfiller.
func CanManage(order *models.Order, actor visibility.Caller) bool {
	switch {
	case actor.Role == enums.RoleSuperAdmin:
		return true
	case actor.Role == enums.RoleManufacturer:
		return order.OwnerManufacturerID != nil && *order.OwnerManufacturerID == actor.ID
	case actor.Role.IsFulfiller():
		return order.IsAssignedTo(actor.ID)
	}
	return false
}

func invalidTransition(from, to enums.OrderStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, to))
}

func canFilterByOwner(caller visibility.Caller, ownerID uuid.UUID) bool {
	switch caller.Role {
	case enums.RoleSuperAdmin:
		return true
	case enums.RoleManufacturer:
		return ownerID == caller.ID
	}
	return false
}

// upToRevision drops rows committed after head was read.
func upToRevision(rows []models.Order, head int64) []models.Order {
	out := rows[:0]
	for _, row := range rows {
		if row.Revision <= head {
			out = append(out, row)
		}
	}
	return out
}
