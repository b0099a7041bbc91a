package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

type statusBody struct {
	Status string `json:"status" validate:"required,order_status"`
	Note   string `json:"note" validate:"omitempty,notblank"`
}

func bodyDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	return details
}

func TestDecodeJSONBodyChecksOrderStatus(t *testing.T) {
	var dest statusBody
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":" Confirmed "}`))
	require.NoError(t, DecodeJSONBody(req, &dest))

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"lost"}`))
	err := DecodeJSONBody(req, &dest)
	require.Equal(t, map[string]string{"status": "is not a known order status"}, bodyDetails(t, err))
}

func TestDecodeJSONBodyRejectsBlankText(t *testing.T) {
	var dest statusBody
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"pending","note":"   "}`))
	err := DecodeJSONBody(req, &dest)
	require.Equal(t, map[string]string{"note": "is required"}, bodyDetails(t, err))
}

func TestDecodeJSONRejectsMalformedBodies(t *testing.T) {
	cases := map[string]struct {
		body        string
		contentType string
		detail      string
	}{
		"empty":         {body: "  ", detail: "request body is required"},
		"trailing data": {body: `{"status":"pending"} {"status":"shipped"}`, detail: "request body must hold a single JSON object"},
		"form post":     {body: `status=pending`, contentType: "application/x-www-form-urlencoded", detail: "content type must be application/json"},
		"too large":     {body: `{"status":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, detail: "request body exceeds 1048576 bytes"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			var dest statusBody
			err := DecodeJSON(req, &dest)
			require.Equal(t, tc.detail, bodyDetails(t, err)["body"])
		})
	}
}

func TestDecodeJSONAcceptsCharsetParameter(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"pending"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	var dest statusBody
	require.NoError(t, DecodeJSON(req, &dest))
	require.Equal(t, "pending", dest.Status)
}
