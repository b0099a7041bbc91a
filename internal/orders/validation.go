package orders

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

const deliveryDateLayout = "2006-01-02"

var draftValidator = newDraftValidator()

func newDraftValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// ValidateDraft checks a draft against the intake rules. On failure it returns
// a validation error whose details map every offending field to a message. On
// success it returns the parsed delivery date.
func ValidateDraft(draft OrderDraft, rules config.OrdersConfig, now time.Time) (time.Time, error) {
	details := map[string]string{}

	if err := draftValidator.Struct(draft); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range errs {
				details[fieldPath(fieldErr)] = validationMessage(fieldErr)
			}
		} else {
			return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
		}
	}

	total, priced := decimal.Zero, true
	for idx, item := range draft.Items {
		field := fmt.Sprintf("items[%d].unit_price", idx)
		switch {
		case item.UnitPrice.IsNegative():
			details[field] = "must not be negative"
		case !item.UnitPrice.Equal(item.UnitPrice.Truncate(models.MoneyPlaces)):
			details[field] = fmt.Sprintf("must have at most %d decimal places", models.MoneyPlaces)
		case !models.FitsMoneyColumn(item.UnitPrice):
			details[field] = "must be less than " + models.MaxMoney.String()
		default:
			total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
			continue
		}
		priced = false
	}
	if priced && !models.FitsMoneyColumn(total) {
		details["total_amount"] = "must be less than " + models.MaxMoney.String()
	}

	address := strings.TrimSpace(draft.DeliveryAddress)
	if _, seen := details["delivery_address"]; !seen && utf8.RuneCountInString(address) < rules.MinAddressLength {
		details["delivery_address"] = fmt.Sprintf("must be at least %d characters", rules.MinAddressLength)
	}

	if _, seen := details["phone_number"]; !seen {
		if !allDigits(draft.PhoneNumber) {
			details["phone_number"] = "must contain only digits"
		} else if len(draft.PhoneNumber) != rules.PhoneDigits {
			details["phone_number"] = fmt.Sprintf("must be exactly %d digits", rules.PhoneDigits)
		}
	}

	var deliveryDate time.Time
	if _, seen := details["estimated_delivery_date"]; !seen {
		parsed, err := time.ParseInLocation(deliveryDateLayout, draft.EstimatedDeliveryDate, time.UTC)
		if err != nil {
			details["estimated_delivery_date"] = "must be a date in YYYY-MM-DD format"
		} else if parsed.Before(startOfDay(now)) {
			details["estimated_delivery_date"] = "must not be in the past"
		} else {
			deliveryDate = parsed
		}
	}

	if method := strings.TrimSpace(draft.PaymentMethod); method != "" {
		if _, err := enums.ParsePaymentMethod(method); err != nil {
			details["payment_method"] = "is not a supported payment method"
		}
	}

	if len(details) > 0 {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "order draft is invalid").WithDetails(details)
	}
	return deliveryDate, nil
}

func allDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}

func startOfDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "numeric":
		return "must contain only digits"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	}
	return "is invalid"
}
