package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

func TestLoggingRecordsRouteStatusAndSize(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "api-test", Format: logger.FormatJSON, Output: buf})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/api/v1/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	require.Equal(t, "request.complete", entry["message"])
	require.Equal(t, "info", entry["level"])
	require.EqualValues(t, http.StatusAccepted, entry["status"])
	require.EqualValues(t, 6, entry["bytes"])
	require.Equal(t, "/api/v1/orders/{orderId}", entry["route"])
	require.Equal(t, "/api/v1/orders/42", entry["path"])
}

func TestLoggingWarnsOnServerErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "api-test", Format: logger.FormatJSON, Output: buf})

	h := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	require.Equal(t, "warn", entry["level"])
}
