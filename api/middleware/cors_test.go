package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
)

func preflight(t *testing.T, h http.Handler, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsConfiguredOriginWithCredentials(t *testing.T) {
	h := CORS(config.CORSConfig{AllowedOrigins: []string{"https://ops.example.com"}, MaxAge: 10 * time.Minute})(http.NotFoundHandler())

	rec := preflight(t, h, "https://ops.example.com")
	require.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	require.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))

	rec = preflight(t, h, "https://evil.example.com")
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	h := CORS(config.CORSConfig{AllowedOrigins: []string{"*"}})(http.NotFoundHandler())

	rec := preflight(t, h, "https://anywhere.example.com")
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}
