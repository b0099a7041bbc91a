package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// Order is a purchase request tracked through its fulfillment lifecycle.
type Order struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PlacedBy              uuid.UUID           `gorm:"column:placed_by;type:uuid;not null;index" json:"placed_by"`
	PlacedByRole          enums.Role          `gorm:"column:placed_by_role;type:user_role;not null" json:"placed_by_role"`
	OwnerManufacturerID   *uuid.UUID          `gorm:"column:owner_manufacturer_id;type:uuid;index" json:"owner_manufacturer_id,omitempty"`
	Status                enums.OrderStatus   `gorm:"column:status;type:order_status;not null" json:"status"`
	TotalAmount           decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null" json:"total_amount"`
	DeliveryAddress       string              `gorm:"column:delivery_address;not null" json:"delivery_address"`
	PhoneNumber           string              `gorm:"column:phone_number;not null" json:"phone_number"`
	EstimatedDeliveryDate time.Time           `gorm:"column:estimated_delivery_date;not null" json:"estimated_delivery_date"`
	PaymentMethod         enums.PaymentMethod `gorm:"column:payment_method;type:payment_method" json:"payment_method"`
	SelectedPaymentOption string              `gorm:"column:selected_payment_option;not null" json:"selected_payment_option"`
	AssignedFulfillerID   *uuid.UUID          `gorm:"column:assigned_fulfiller_id;type:uuid;index" json:"assigned_fulfiller_id,omitempty"`
	AssignedAt            *time.Time          `gorm:"column:assigned_at" json:"assigned_at,omitempty"`
	Revision              int64               `gorm:"column:revision;not null;index" json:"revision"`
	CreatedRevision       int64               `gorm:"column:created_revision;not null" json:"created_revision"`
	OrderDate             time.Time           `gorm:"column:order_date;not null" json:"order_date"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Items                 []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Position   int             `gorm:"column:position;not null" json:"position"`
	ProductRef string          `gorm:"column:product_ref;not null" json:"product_ref"`
	Name       string          `gorm:"column:name;not null" json:"name"`
	Quantity   int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null" json:"unit_price"`
	LineTotal  decimal.Decimal `gorm:"column:line_total;type:numeric(14,2);not null" json:"line_total"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Money columns are numeric(14,2): two decimal places and amounts below 10^12.
const MoneyPlaces int32 = 2

var MaxMoney = decimal.New(1, 12)

// FitsMoneyColumn reports whether amount is stored without rounding or overflow.
func FitsMoneyColumn(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(MoneyPlaces)) && amount.Abs().LessThan(MaxMoney)
}

// RecomputeTotal derives every line total and the order total from the items.
// It is the only place TotalAmount is assigned.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for idx := range o.Items {
		item := &o.Items[idx]
		item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.LineTotal)
	}
	o.TotalAmount = total
}

// IsUnclaimed reports whether no manufacturer owns the order yet.
func (o *Order) IsUnclaimed() bool {
	return o.OwnerManufacturerID == nil
}

// IsAssignedTo reports whether fulfillerID is the active fulfiller.
func (o *Order) IsAssignedTo(fulfillerID uuid.UUID) bool {
	return o.AssignedFulfillerID != nil && *o.AssignedFulfillerID == fulfillerID
}

// CheckAssignmentInvariant verifies the status agrees with the fulfiller binding.
func (o *Order) CheckAssignmentInvariant() error {
	assigned := o.AssignedFulfillerID != nil
	if assigned && o.Status == enums.OrderStatusPending {
		return fmt.Errorf("order %s is pending but has fulfiller %s", o.ID, *o.AssignedFulfillerID)
	}
	if !assigned && o.Status == enums.OrderStatusInProgress {
		return fmt.Errorf("order %s is in progress without a fulfiller", o.ID)
	}
	return nil
}

// Clone returns a deep copy so callers never share state with the store.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	out := *o
	out.OwnerManufacturerID = cloneUUID(o.OwnerManufacturerID)
	out.AssignedFulfillerID = cloneUUID(o.AssignedFulfillerID)
	if o.AssignedAt != nil {
		at := *o.AssignedAt
		out.AssignedAt = &at
	}
	if o.Items != nil {
		out.Items = make([]OrderItem, len(o.Items))
		copy(out.Items, o.Items)
	}
	return &out
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
