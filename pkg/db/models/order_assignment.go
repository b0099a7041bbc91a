package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// OrderAssignment captures fulfiller assignment history for an order.
// At most one row per order is active.
type OrderAssignment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	FulfillerID      uuid.UUID           `gorm:"column:fulfiller_id;type:uuid;not null" json:"fulfiller_id"`
	FulfillerType    enums.FulfillerType `gorm:"column:fulfiller_type;type:fulfiller_type;not null" json:"fulfiller_type"`
	AssignedByUserID *uuid.UUID          `gorm:"column:assigned_by_user_id;type:uuid" json:"assigned_by_user_id,omitempty"`
	AssignedAt       time.Time           `gorm:"column:assigned_at;not null" json:"assigned_at"`
	UnassignedAt     *time.Time          `gorm:"column:unassigned_at" json:"unassigned_at,omitempty"`
	Active           bool                `gorm:"column:active;not null" json:"active"`
}

func (a *OrderAssignment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
