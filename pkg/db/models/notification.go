package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// Notification tells one subscriber that an order it can see changed.
// (subscriber_key, order_id, revision) is unique so a replayed poll cannot
// deliver the same change twice.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SubscriberKey string                 `gorm:"column:subscriber_key;not null;uniqueIndex:ux_notifications_delivery,priority:1" json:"subscriber_key"`
	SubscriberID  uuid.UUID              `gorm:"column:subscriber_id;type:uuid;not null;index" json:"subscriber_id"`
	Role          enums.Role             `gorm:"column:role;type:user_role;not null" json:"role"`
	View          enums.OrderView        `gorm:"column:order_view;type:order_view;not null" json:"view"`
	OrderID       uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_notifications_delivery,priority:2" json:"order_id"`
	Revision      int64                  `gorm:"column:revision;not null;uniqueIndex:ux_notifications_delivery,priority:3" json:"revision"`
	Kind          enums.NotificationKind `gorm:"column:kind;type:notification_kind;not null" json:"kind"`
	OrderStatus   enums.OrderStatus      `gorm:"column:order_status;type:order_status;not null" json:"order_status"`
	Order         OrderSnapshot          `gorm:"column:order_snapshot;type:jsonb;serializer:json" json:"order"`
	Seen          bool                   `gorm:"column:seen;not null" json:"seen"`
	SeenAt        *time.Time             `gorm:"column:seen_at" json:"seen_at,omitempty"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
