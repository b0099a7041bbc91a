package assignments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
)

// Repository persists assignment history rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.OrderAssignment) error
	DeactivateActive(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderAssignment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the assignments repository to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, assignment *models.OrderAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) DeactivateActive(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderAssignment{}).
		Where("order_id = ? AND active = ?", orderID, true).
		Updates(map[string]any{"active": false, "unassigned_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderAssignment, error) {
	var rows []models.OrderAssignment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("assigned_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
