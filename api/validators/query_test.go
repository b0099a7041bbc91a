package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

func TestParseQueryRevision(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?sinceRevision=12", nil)
	rev, err := ParseQueryRevision(req, "sinceRevision")
	require.NoError(t, err)
	require.Equal(t, int64(12), rev)

	req = httptest.NewRequest(http.MethodGet, "/?sinceRevision=-1", nil)
	_, err = ParseQueryRevision(req, "sinceRevision")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryIntBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err := ParseQueryInt(req, "limit", 25, 1, 100)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, map[string]string{"limit": "must be between 1 and 100"}, typed.Details())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	limit, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 25, limit)
}

func TestParseQueryBoolAndUUID(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?unseenOnly=true&ownerId="+id.String(), nil)

	unseen, err := ParseQueryBool(req, "unseenOnly")
	require.NoError(t, err)
	require.True(t, unseen)

	owner, err := ParseQueryUUID(req, "ownerId")
	require.NoError(t, err)
	require.Equal(t, id, *owner)

	req = httptest.NewRequest(http.MethodGet, "/?ownerId=nope", nil)
	_, err = ParseQueryUUID(req, "ownerId")
	require.Error(t, err)
}

func TestParsePathUUID(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParsePathUUID(req, "orderId")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = ParsePathUUID(req, "fulfillerId")
	require.Error(t, err)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var dest struct {
		Status string `json:"status" validate:"required"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"confirmed","extra":1}`))
	err := DecodeJSONBody(req, &dest)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	err = DecodeJSONBody(req, &dest)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, map[string]string{"status": "is required"}, typed.Details())
}
