package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// OrderSnapshot is the copy of an order embedded in a notification so a client
// can open the order without another fetch.
type OrderSnapshot struct {
	ID                    uuid.UUID           `json:"id"`
	PlacedBy              uuid.UUID           `json:"placed_by"`
	OwnerManufacturerID   *uuid.UUID          `json:"owner_manufacturer_id,omitempty"`
	Status                enums.OrderStatus   `json:"status"`
	TotalAmount           decimal.Decimal     `json:"total_amount"`
	ItemCount             int                 `json:"item_count"`
	DeliveryAddress       string              `json:"delivery_address"`
	PhoneNumber           string              `json:"phone_number"`
	EstimatedDeliveryDate time.Time           `json:"estimated_delivery_date"`
	PaymentMethod         enums.PaymentMethod `json:"payment_method,omitempty"`
	AssignedFulfillerID   *uuid.UUID          `json:"assigned_fulfiller_id,omitempty"`
	Revision              int64               `json:"revision"`
	OrderDate             time.Time           `json:"order_date"`
}

// Snapshot captures the fields a notification carries.
func (o *Order) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		ID:                    o.ID,
		PlacedBy:              o.PlacedBy,
		OwnerManufacturerID:   cloneUUID(o.OwnerManufacturerID),
		Status:                o.Status,
		TotalAmount:           o.TotalAmount,
		ItemCount:             len(o.Items),
		DeliveryAddress:       o.DeliveryAddress,
		PhoneNumber:           o.PhoneNumber,
		EstimatedDeliveryDate: o.EstimatedDeliveryDate,
		PaymentMethod:         o.PaymentMethod,
		AssignedFulfillerID:   cloneUUID(o.AssignedFulfillerID),
		Revision:              o.Revision,
		OrderDate:             o.OrderDate,
	}
}
