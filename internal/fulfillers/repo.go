package fulfillers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
)

// Repository persists the fulfiller directory.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, fulfiller *models.Fulfiller) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Fulfiller, error)
	List(ctx context.Context, activeOnly bool) ([]models.Fulfiller, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the fulfillers repository to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, fulfiller *models.Fulfiller) error {
	return r.db.WithContext(ctx).Create(fulfiller).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Fulfiller, error) {
	var fulfiller models.Fulfiller
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&fulfiller).Error; err != nil {
		return nil, err
	}
	return &fulfiller, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.Fulfiller, error) {
	query := r.db.WithContext(ctx).Model(&models.Fulfiller{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var rows []models.Fulfiller
	if err := query.Order("display_name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
