package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds the orders repository to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	conn := r.db.WithContext(ctx)
	if err := conn.Omit("Items").Create(order).Error; err != nil {
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}
	for idx := range order.Items {
		order.Items[idx].OrderID = order.ID
		order.Items[idx].Position = idx
	}
	return conn.Create(&order.Items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Items", orderItems).
		Scopes(viewScope(filter))

	if filter.OwnerID != nil {
		query = query.Where("owner_manufacturer_id = ?", *filter.OwnerID)
	}

	if filter.SinceRevision > 0 {
		query = query.Where("revision > ?", filter.SinceRevision).Order("revision ASC")
	} else {
		query = query.Scopes(pagination.Seek(filter.Cursor, "order_date")).
			Order("order_date DESC").Order("id DESC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ChangedSince(ctx context.Context, revision int64, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("revision > ?", revision).
		Order("revision ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return false, err
	}
	res := conn.Where("id = ?", id).Delete(&models.Order{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) NextRevision(ctx context.Context) (int64, error) {
	return db.NextSequence(r.db.WithContext(ctx), models.CounterOrderRevision)
}

func (r *repository) HeadRevision(ctx context.Context) (int64, error) {
	return db.CurrentSequence(r.db.WithContext(ctx), models.CounterOrderRevision)
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// viewScope narrows the query to the caller's view. It mirrors
// visibility.Visible so the database returns no more than the caller may see.
func viewScope(filter ListFilter) func(*gorm.DB) *gorm.DB {
	callerID := filter.Caller.ID
	return func(db *gorm.DB) *gorm.DB {
		switch filter.View {
		case enums.OrderViewAll:
			return db
		case enums.OrderViewOwn:
			return db.Where("placed_by = ?", callerID)
		case enums.OrderViewAssigned:
			return db.Where("assigned_fulfiller_id = ?", callerID)
		case enums.OrderViewIncoming:
			db = db.Where("placed_by <> ?", callerID)
			claimed, args := "owner_manufacturer_id IS NOT NULL", []any{}
			if filter.Policy.OwnerScopedIncoming {
				claimed, args = "owner_manufacturer_id = ?", []any{callerID}
			}
			if filter.Policy.OpenMarketplace {
				claimed = "(" + claimed + " OR (owner_manufacturer_id IS NULL AND assigned_fulfiller_id IS NULL))"
			}
			return db.Where(claimed, args...)
		default:
			return db.Where("1 = 0")
		}
	}
}
