package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

// OrderDraft is the caller supplied content of a new order.
type OrderDraft struct {
	OwnerManufacturerID   *uuid.UUID  `json:"owner_manufacturer_id,omitempty"`
	Items                 []ItemDraft `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress       string      `json:"delivery_address" validate:"required"`
	PhoneNumber           string      `json:"phone_number" validate:"required,numeric"`
	EstimatedDeliveryDate string      `json:"estimated_delivery_date" validate:"required,datetime=2006-01-02"`
	PaymentMethod         string      `json:"payment_method,omitempty"`
	SelectedPaymentOption string      `json:"selected_payment_option" validate:"required"`
}

// ItemDraft is one requested line of an order.
type ItemDraft struct {
	ProductRef string          `json:"product_ref" validate:"required"`
	Name       string          `json:"name" validate:"required"`
	Quantity   int             `json:"quantity" validate:"gt=0"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// CreateInput carries the caller and the draft to persist.
type CreateInput struct {
	Caller visibility.Caller
	Draft  OrderDraft
}

// ListInput selects which orders a caller wants to read.
type ListInput struct {
	Caller        visibility.Caller
	View          string
	OwnerID       *uuid.UUID
	SinceRevision int64
	Limit         int
	Cursor        string
}

// ListFilter is the resolved query handed to the repository.
type ListFilter struct {
	Caller        visibility.Caller
	View          enums.OrderView
	Policy        visibility.Policy
	OwnerID       *uuid.UUID
	SinceRevision int64
	Limit         int
	Cursor        *pagination.Cursor
}

// OrderList wraps one page of orders. HeadRevision is the latest revision the
// read reflects; passing it back as SinceRevision returns only newer changes.
type OrderList struct {
	Orders       []models.Order `json:"orders"`
	NextCursor   string         `json:"next_cursor,omitempty"`
	HeadRevision int64          `json:"head_revision"`
}

// SetStatusInput requests a status change on behalf of Actor.
type SetStatusInput struct {
	OrderID uuid.UUID
	Status  string
	Actor   visibility.Caller
}

// RemoveInput requests administrative removal of an order.
type RemoveInput struct {
	OrderID uuid.UUID
	Actor   visibility.Caller
}
