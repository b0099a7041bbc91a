package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// Fulfiller is an operator that orders can be bound to. ID is the operator's
// user id so tokens and assignments share one identifier.
type Fulfiller struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Type        enums.FulfillerType `gorm:"column:type;type:fulfiller_type;not null" json:"type"`
	DisplayName string              `gorm:"column:display_name;not null" json:"display_name"`
	Phone       *string             `gorm:"column:phone" json:"phone,omitempty"`
	Active      bool                `gorm:"column:active;not null" json:"active"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
