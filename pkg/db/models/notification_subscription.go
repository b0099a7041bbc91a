package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// NotificationSubscription registers a subscriber for one order view.
// StartRevision is the revision current at registration; changes at or before
// it are never delivered.
type NotificationSubscription struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Key           string          `gorm:"column:subscriber_key;not null;uniqueIndex" json:"subscriber_key"`
	SubscriberID  uuid.UUID       `gorm:"column:subscriber_id;type:uuid;not null;index" json:"subscriber_id"`
	Role          enums.Role      `gorm:"column:role;type:user_role;not null" json:"role"`
	View          enums.OrderView `gorm:"column:order_view;type:order_view;not null" json:"view"`
	StartRevision int64           `gorm:"column:start_revision;not null" json:"start_revision"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (s *NotificationSubscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
