package enums

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// PaymentMethod records how a buyer says they will settle an order.
// It is informational only; nothing is charged.
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodUPI            PaymentMethod = "upi"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCredit         PaymentMethod = "credit"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCashOnDelivery,
	PaymentMethodUPI,
	PaymentMethodCard,
	PaymentMethodBankTransfer,
	PaymentMethodCredit,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := PaymentMethod(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// Value stores an unset method as NULL.
func (p PaymentMethod) Value() (driver.Value, error) {
	if p == "" {
		return nil, nil
	}
	return string(p), nil
}

// Scan reads a nullable payment_method column.
func (p *PaymentMethod) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = ""
	case string:
		*p = PaymentMethod(v)
	case []byte:
		*p = PaymentMethod(v)
	default:
		return fmt.Errorf("unsupported payment method value %T", src)
	}
	return nil
}
