package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications and subscriptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) (bool, error)
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	MarkSeen(ctx context.Context, subscriberID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllSeen(ctx context.Context, subscriberID uuid.UUID, now time.Time) (int64, error)
	CountUnseen(ctx context.Context, subscriberID uuid.UUID) (int64, error)
	PurgeSeen(ctx context.Context, cutoff time.Time, batch int) (int64, error)
	EnsureSubscription(ctx context.Context, sub *models.NotificationSubscription) (*models.NotificationSubscription, error)
	ListSubscriptions(ctx context.Context) ([]models.NotificationSubscription, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	SubscriberID uuid.UUID
	Limit        int
	Cursor       *pagination.Cursor
	UnseenOnly   bool
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Create inserts the notification unless the subscriber already holds one for
// the same order revision. It reports whether a row was written.
func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscriber_key"}, {Name: "order_id"}, {Name: "revision"}},
			DoNothing: true,
		}).
		Create(notification)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("subscriber_id = ?", params.SubscriberID)
	if params.UnseenOnly {
		query = query.Where("seen = ?", false)
	}
	query = query.Scopes(pagination.Seek(params.Cursor, "created_at"))

	var notifications []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	page, more := pagination.Trim(notifications, params.Limit)
	if more {
		last := page[len(page)-1]
		return page, &pagination.Cursor{At: last.CreatedAt, ID: last.ID}, nil
	}
	return page, nil, nil
}

func (r *repositoryImpl) MarkSeen(ctx context.Context, subscriberID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND subscriber_id = ? AND seen = ?", notificationID, subscriberID, false).
		UpdateColumns(map[string]any{"seen": true, "seen_at": now})
	if result.Error != nil {
		return notificationMarkResult{}, result.Error
	}

	mark := notificationMarkResult{Updated: result.RowsAffected > 0}
	if result.RowsAffected > 0 {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND subscriber_id = ?", notificationID, subscriberID).
		Count(&count).Error; err != nil {
		return notificationMarkResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *repositoryImpl) MarkAllSeen(ctx context.Context, subscriberID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("subscriber_id = ? AND seen = ?", subscriberID, false).
		UpdateColumns(map[string]any{"seen": true, "seen_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) CountUnseen(ctx context.Context, subscriberID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("subscriber_id = ? AND seen = ?", subscriberID, false).
		Count(&count).Error
	return count, err
}

// PurgeSeen deletes up to batch notifications that were seen before cutoff,
// oldest first. Unseen rows are kept regardless of age.
func (r *repositoryImpl) PurgeSeen(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	conn := r.db.WithContext(ctx)
	oldest := conn.Model(&models.Notification{}).
		Select("id").
		Where("seen = ? AND seen_at < ?", true, cutoff).
		Order("seen_at ASC").
		Limit(batch)
	result := conn.Where("id IN (?)", oldest).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// EnsureSubscription registers sub unless its key already exists and returns
// the stored row. An existing subscription keeps its original start revision.
func (r *repositoryImpl) EnsureSubscription(ctx context.Context, sub *models.NotificationSubscription) (*models.NotificationSubscription, error) {
	conn := r.db.WithContext(ctx)
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscriber_key"}},
		DoNothing: true,
	}).Create(sub).Error; err != nil {
		return nil, err
	}
	var stored models.NotificationSubscription
	if err := conn.Where("subscriber_key = ?", sub.Key).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repositoryImpl) ListSubscriptions(ctx context.Context) ([]models.NotificationSubscription, error) {
	var rows []models.NotificationSubscription
	err := r.db.WithContext(ctx).Order("created_at ASC").Order("subscriber_key ASC").Find(&rows).Error
	return rows, err
}
