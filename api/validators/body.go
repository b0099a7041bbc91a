package validators

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

// MaxBodyBytes caps every JSON request body the API reads.
const MaxBodyBytes = 1 << 20

var structValidator = buildValidator()

func buildValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		_, err := enums.ParseOrderStatus(fl.Field().String())
		return err == nil
	})
	return v
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// DecodeJSONBody is DecodeJSON followed by Validate.
func DecodeJSONBody(r *http.Request, dest any) error {
	if err := DecodeJSON(r, dest); err != nil {
		return err
	}
	return Validate(dest)
}

// DecodeJSON reads exactly one JSON value into dest. Unknown fields, trailing
// data, a non-JSON content type and bodies over MaxBodyBytes are rejected.
// The owning service is expected to apply its own rules.
func DecodeJSON(r *http.Request, dest any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if media, _, err := mime.ParseMediaType(ct); err != nil || media != "application/json" {
			return bodyError(nil, "content type must be application/json")
		}
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	_, _ = io.Copy(io.Discard, r.Body)
	if err != nil {
		return bodyError(err, "could not read request body")
	}
	switch {
	case len(raw) > MaxBodyBytes:
		return bodyError(nil, fmt.Sprintf("request body exceeds %d bytes", MaxBodyBytes))
	case len(bytes.TrimSpace(raw)) == 0:
		return bodyError(nil, "request body is required")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return bodyError(err, err.Error())
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return bodyError(nil, "request body must hold a single JSON object")
	}
	return nil
}

// Validate runs the validate tags on dest and maps failures to a validation
// error keyed by JSON field name.
func Validate(dest any) error {
	err := structValidator.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func bodyError(cause error, detail string) error {
	e := pkgerrors.New(pkgerrors.CodeValidation, "invalid request body")
	if cause != nil {
		e = pkgerrors.Wrap(pkgerrors.CodeValidation, cause, "invalid request body")
	}
	return e.WithDetails(map[string]string{"body": detail})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "uuid", "uuid4":
		return "must be a valid uuid"
	case "oneof":
		return "must be one of " + fe.Param()
	case "order_status":
		return "is not a known order status"
	default:
		return "is invalid"
	}
}
