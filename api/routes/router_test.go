package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradeflow-backend/internal/assignments"
	"github.com/angelmondragon/tradeflow-backend/internal/fulfillers"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications/feed"
	"github.com/angelmondragon/tradeflow-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/tradeflow-backend/pkg/auth"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

type testServer struct {
	handler http.Handler
	cfg     *config.Config
}

func newTestServer(t *testing.T) (*testServer, uuid.UUID) {
	t.Helper()

	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client := dbtest.Open(t)

	ordersRepo := orders.NewRepository(client.DB())
	ordersSvc, err := orders.NewService(orders.ServiceParams{Repo: ordersRepo, Tx: client, Rules: cfg.Orders})
	require.NoError(t, err)

	fulfillersRepo := fulfillers.NewRepository(client.DB())
	fulfillersSvc, err := fulfillers.NewService(fulfillersRepo)
	require.NoError(t, err)

	assignmentsSvc, err := assignments.NewService(assignments.ServiceParams{
		Orders:      ordersRepo,
		Fulfillers:  fulfillersRepo,
		Assignments: assignments.NewRepository(client.DB()),
		Tx:          client,
		Policy:      visibility.PolicyFor(cfg.Orders),
	})
	require.NoError(t, err)

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(client.DB()), ordersSvc)
	require.NoError(t, err)

	truck := uuid.New()
	dbtest.SeedFulfiller(t, client, truck, "Ade Haulage")

	handler := NewRouter(cfg, logg, client, nil, ordersSvc, assignmentsSvc, fulfillersSvc, notificationsSvc, feed.NewHub())
	return &testServer{handler: handler, cfg: cfg}, truck
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "tradeflow", ExpirationMinutes: 5},
		Orders: config.OrdersConfig{
			MinAddressLength: 10,
			PhoneDigits:      10,
			OpenMarketplace:  true,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func (s *testServer) token(t *testing.T, id uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(s.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: id, Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Data
}

const orderBody = `{"items":[{"product_ref":"sku-1","name":"Cement","quantity":2,"unit_price":"12.50"}],` +
	`"delivery_address":"12 Harbour Road, Lagos","phone_number":"0801234567",` +
	`"estimated_delivery_date":"2099-01-02","selected_payment_option":"bank_transfer"}`

func TestHealthAndMetricsArePublic(t *testing.T) {
	srv, _ := newTestServer(t)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/metrics", "", "").Code)
}

func TestAPIRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, target := range []string{"/api/v1/orders", "/api/v1/notifications", "/api/v1/notifications/feed"} {
		rec := srv.do(t, http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/orders", "not-a-jwt", "").Code)
}

func TestOrderLifecycleThroughRouter(t *testing.T) {
	srv, truck := newTestServer(t)
	agent := srv.token(t, uuid.New(), enums.RoleAgent)
	admin := srv.token(t, uuid.New(), enums.RoleSuperAdmin)
	trucker := srv.token(t, truck, enums.RoleTruckOwner)

	rec := srv.do(t, http.MethodPost, "/api/v1/orders", agent, orderBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData[models.Order](t, rec)
	assert.Equal(t, enums.OrderStatusPending, created.Status)
	assert.Equal(t, "25", created.TotalAmount.String())

	rec = srv.do(t, http.MethodGet, "/api/v1/orders?view=own", agent, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[orders.OrderList](t, rec)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, created.ID, list.Orders[0].ID)

	rec = srv.do(t, http.MethodPost, "/api/v1/orders/"+created.ID.String()+"/assign", admin, `{"fulfillerId":"`+truck.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assigned := decodeData[models.Order](t, rec)
	assert.Equal(t, enums.OrderStatusInProgress, assigned.Status)

	rec = srv.do(t, http.MethodGet, "/api/v1/orders?view=assigned", trucker, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[orders.OrderList](t, rec).Orders, 1)

	statusURL := "/api/v1/orders/" + created.ID.String() + "/status"
	rec = srv.do(t, http.MethodPut, statusURL, trucker, `{"status":"shipped"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = srv.do(t, http.MethodPut, statusURL, trucker, `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = srv.do(t, http.MethodPut, statusURL, trucker, `{"status":"shipped"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, enums.OrderStatusShipped, decodeData[models.Order](t, rec).Status)

	rec = srv.do(t, http.MethodGet, "/api/v1/orders/"+created.ID.String()+"/assignments", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]models.OrderAssignment](t, rec), 1)
}

func TestAdminOnlyRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	agent := srv.token(t, uuid.New(), enums.RoleAgent)
	admin := srv.token(t, uuid.New(), enums.RoleSuperAdmin)

	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, "/api/v1/orders/changes?since=0", agent, "").Code)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, "/api/v1/fulfillers", agent, "").Code)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodDelete, "/api/v1/orders/"+uuid.NewString(), agent, "").Code)

	rec := srv.do(t, http.MethodGet, "/api/v1/fulfillers", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]models.Fulfiller](t, rec), 1)

	rec = srv.do(t, http.MethodGet, "/api/v1/orders/changes?since=0", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNotificationRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	maker := srv.token(t, uuid.New(), enums.RoleManufacturer)

	rec := srv.do(t, http.MethodPost, "/api/v1/notifications/subscribe", maker, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decodeData[[]models.NotificationSubscription](t, rec))

	rec = srv.do(t, http.MethodGet, "/api/v1/notifications?unseenOnly=true", maker, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[notifications.ListResult](t, rec).Items)

	rec = srv.do(t, http.MethodPost, "/api/v1/notifications/seen-all", maker, "")
	require.Equal(t, http.StatusOK, rec.Code)
}
