package notifications

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradeflow-backend/internal/assignments"
	"github.com/angelmondragon/tradeflow-backend/internal/fulfillers"
	"github.com/angelmondragon/tradeflow-backend/internal/orders"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/metrics"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

type memoryMarks struct {
	mu     sync.Mutex
	values map[string]int64
	getErr error
}

func newMemoryMarks() *memoryMarks {
	return &memoryMarks{values: map[string]int64{}}
}

func (m *memoryMarks) Get(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryMarks) Set(_ context.Context, key string, revision int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = revision
	return nil
}

func (m *memoryMarks) snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

type recordingPublisher struct {
	channels []string
	payloads []*models.Notification
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload.(*models.Notification))
	return nil
}

// switchableSource wraps the real order service and can simulate an outage.
type switchableSource struct {
	inner ChangeSource
	err   error
	calls int
}

func (s *switchableSource) ChangesSince(ctx context.Context, revision int64, limit int) (*types.OrderChanges, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.ChangesSince(ctx, revision, limit)
}

type world struct {
	client     *db.Client
	orders     orders.Service
	engine     assignments.Service
	notify     Service
	repo       Repository
	marks      *memoryMarks
	publisher  *recordingPublisher
	source     *switchableSource
	dispatcher *Dispatcher
	registry   *prometheus.Registry

	agent   visibility.Caller
	maker   visibility.Caller
	rival   visibility.Caller
	admin   visibility.Caller
	trucker visibility.Caller
}

func newWorld(t *testing.T) *world {
	t.Helper()
	return newWorldWithRules(t, config.OrdersConfig{MinAddressLength: 10, PhoneDigits: 10, OpenMarketplace: true})
}

func newWorldWithRules(t *testing.T, rules config.OrdersConfig) *world {
	t.Helper()
	client := dbtest.Open(t)
	clock := func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) }
	policy := visibility.PolicyFor(rules)

	orderRepo := orders.NewRepository(client.DB())
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:  orderRepo,
		Tx:    client,
		Rules: rules,
		Clock: clock,
	})
	require.NoError(t, err)

	engine, err := assignments.NewService(assignments.ServiceParams{
		Orders:      orderRepo,
		Fulfillers:  fulfillers.NewRepository(client.DB()),
		Assignments: assignments.NewRepository(client.DB()),
		Tx:          client,
		Policy:      policy,
		Clock:       clock,
	})
	require.NoError(t, err)

	repo := NewRepository(client.DB())
	notify, err := NewService(repo, orderSvc)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	w := &world{
		client:    client,
		orders:    orderSvc,
		engine:    engine,
		notify:    notify,
		repo:      repo,
		marks:     newMemoryMarks(),
		publisher: &recordingPublisher{},
		source:    &switchableSource{inner: orderSvc},
		registry:  registry,
		agent:     visibility.Caller{ID: uuid.New(), Role: enums.RoleAgent},
		maker:     visibility.Caller{ID: uuid.New(), Role: enums.RoleManufacturer},
		rival:     visibility.Caller{ID: uuid.New(), Role: enums.RoleManufacturer},
		admin:     visibility.Caller{ID: uuid.New(), Role: enums.RoleSuperAdmin},
		trucker:   visibility.Caller{ID: uuid.New(), Role: enums.RoleTruckOwner},
	}
	dbtest.SeedFulfiller(t, client, w.trucker.ID, "Trucker")

	w.dispatcher, err = NewDispatcher(DispatcherParams{
		Repo:      repo,
		Source:    w.source,
		Marks:     w.marks,
		Publisher: w.publisher,
		Channel:   "tf:channel:notifications",
		Policy:    policy,
		BatchSize: 50,
		Metrics:   metrics.NewDispatchMetrics(registry),
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return w
}

func (w *world) place(t *testing.T, caller visibility.Caller) *models.Order {
	t.Helper()
	order, err := w.orders.Create(context.Background(), orders.CreateInput{
		Caller: caller,
		Draft: orders.OrderDraft{
			Items: []orders.ItemDraft{
				{ProductRef: "sku-3", Name: "Tiles", Quantity: 10, UnitPrice: decimal.RequireFromString("3.5")},
			},
			DeliveryAddress:       "44 Lake View Colony, Hyderabad",
			PhoneNumber:           "9988776655",
			EstimatedDeliveryDate: "2026-10-21",
			SelectedPaymentOption: "bank",
		},
	})
	require.NoError(t, err)
	return order
}

func (w *world) subscribe(t *testing.T, caller visibility.Caller) []models.NotificationSubscription {
	t.Helper()
	subs, err := w.notify.Subscribe(context.Background(), caller)
	require.NoError(t, err)
	return subs
}

func (w *world) poll(t *testing.T) PollResult {
	t.Helper()
	result, err := w.dispatcher.Poll(context.Background())
	require.NoError(t, err)
	return result
}

func (w *world) inbox(t *testing.T, subscriber uuid.UUID) []models.Notification {
	t.Helper()
	list, err := w.notify.List(context.Background(), ListParams{SubscriberID: subscriber, Limit: 100})
	require.NoError(t, err)
	return list.Items
}

func TestNewOrderReachesIncomingManufacturers(t *testing.T) {
	w := newWorld(t)
	subs := w.subscribe(t, w.maker)
	require.Len(t, subs, 2)
	w.subscribe(t, w.rival)
	w.subscribe(t, w.agent)

	order := w.place(t, w.agent)
	result := w.poll(t)
	assert.Equal(t, 5, result.Subscribers)
	assert.Equal(t, order.Revision, result.HeadRevision)

	for _, maker := range []visibility.Caller{w.maker, w.rival} {
		inbox := w.inbox(t, maker.ID)
		require.Len(t, inbox, 1)
		assert.Equal(t, enums.NotificationKindNewOrder, inbox[0].Kind)
		assert.Equal(t, enums.OrderViewIncoming, inbox[0].View)
		assert.Equal(t, order.ID, inbox[0].OrderID)
		assert.Equal(t, order.ID, inbox[0].Order.ID)
		assert.False(t, inbox[0].Seen)
	}

	own := w.inbox(t, w.agent.ID)
	require.Len(t, own, 1)
	assert.Equal(t, enums.OrderViewOwn, own[0].View)
	assert.Len(t, w.publisher.payloads, 3)

	again := w.poll(t)
	assert.Zero(t, again.Emitted)
	assert.Len(t, w.inbox(t, w.maker.ID), 1)
}

func TestStatusChangesProduceStatusChanged(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	order := w.place(t, w.agent)

	w.subscribe(t, w.agent)
	w.subscribe(t, w.trucker)
	w.poll(t)
	assert.Empty(t, w.inbox(t, w.agent.ID), "changes before subscribing are not delivered")

	_, err := w.engine.Assign(ctx, assignments.AssignInput{OrderID: order.ID, FulfillerID: w.trucker.ID, Actor: w.maker})
	require.NoError(t, err)
	w.poll(t)

	agentInbox := w.inbox(t, w.agent.ID)
	require.Len(t, agentInbox, 1)
	assert.Equal(t, enums.NotificationKindStatusChanged, agentInbox[0].Kind)
	assert.Equal(t, enums.OrderStatusInProgress, agentInbox[0].OrderStatus)

	truckInbox := w.inbox(t, w.trucker.ID)
	require.Len(t, truckInbox, 1)
	assert.Equal(t, enums.OrderViewAssigned, truckInbox[0].View)

	_, err = w.orders.SetStatus(ctx, orders.SetStatusInput{OrderID: order.ID, Status: "confirmed", Actor: w.trucker})
	require.NoError(t, err)
	w.poll(t)

	agentInbox = w.inbox(t, w.agent.ID)
	require.Len(t, agentInbox, 2)
	statuses := []enums.OrderStatus{agentInbox[0].OrderStatus, agentInbox[1].OrderStatus}
	assert.ElementsMatch(t, []enums.OrderStatus{enums.OrderStatusInProgress, enums.OrderStatusConfirmed}, statuses)
}

func TestOrderCreatedAndAssignedBetweenPollsIsNew(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.subscribe(t, w.agent)
	w.subscribe(t, w.rival)

	order := w.place(t, w.agent)
	_, err := w.engine.Assign(ctx, assignments.AssignInput{OrderID: order.ID, FulfillerID: w.trucker.ID, Actor: w.maker})
	require.NoError(t, err)
	w.poll(t)

	for _, caller := range []visibility.Caller{w.agent, w.rival} {
		inbox := w.inbox(t, caller.ID)
		require.Len(t, inbox, 1)
		assert.Equal(t, enums.NotificationKindNewOrder, inbox[0].Kind)
		assert.Equal(t, enums.OrderStatusInProgress, inbox[0].OrderStatus)
	}
	assert.Equal(t, enums.OrderViewIncoming, w.inbox(t, w.rival.ID)[0].View)

	_, err = w.orders.SetStatus(ctx, orders.SetStatusInput{OrderID: order.ID, Status: "confirmed", Actor: w.trucker})
	require.NoError(t, err)
	w.poll(t)

	rival := w.inbox(t, w.rival.ID)
	require.Len(t, rival, 2)
	kinds := []enums.NotificationKind{rival[0].Kind, rival[1].Kind}
	assert.ElementsMatch(t, []enums.NotificationKind{enums.NotificationKindNewOrder, enums.NotificationKindStatusChanged}, kinds)
}

func TestOwnerScopedClaimLeavesRivalView(t *testing.T) {
	w := newWorldWithRules(t, config.OrdersConfig{
		MinAddressLength:    10,
		PhoneDigits:         10,
		OpenMarketplace:     true,
		OwnerScopedIncoming: true,
	})
	ctx := context.Background()
	w.subscribe(t, w.rival)

	order := w.place(t, w.agent)
	_, err := w.engine.Assign(ctx, assignments.AssignInput{OrderID: order.ID, FulfillerID: w.trucker.ID, Actor: w.maker})
	require.NoError(t, err)
	w.poll(t)

	assert.Empty(t, w.inbox(t, w.rival.ID))
}

func TestTransportFailureKeepsMarks(t *testing.T) {
	w := newWorld(t)
	subs := w.subscribe(t, w.maker)
	w.place(t, w.agent)

	w.source.err = pkgerrors.New(pkgerrors.CodeDependency, "backend unreachable")
	result, err := w.dispatcher.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, w.marks.snapshot())
	assert.Empty(t, w.inbox(t, w.maker.ID))

	w.source.err = errors.New("dial tcp: connection refused")
	_, err = w.dispatcher.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, w.marks.snapshot())

	w.source.err = nil
	w.poll(t)
	assert.Len(t, w.inbox(t, w.maker.ID), 1)
	for _, sub := range subs {
		assert.Equal(t, int64(1), w.marks.snapshot()[sub.Key])
	}
}

func TestSourceRejectionsPropagate(t *testing.T) {
	w := newWorld(t)
	w.subscribe(t, w.maker)
	w.place(t, w.agent)

	w.source.err = pkgerrors.New(pkgerrors.CodeStateConflict, "nope")
	_, err := w.dispatcher.Poll(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	w.source.err = pkgerrors.New(pkgerrors.CodeValidation, "bad revision")
	_, err = w.dispatcher.Poll(context.Background())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, w.marks.snapshot())
}

func TestMarkStoreFailureIsReported(t *testing.T) {
	w := newWorld(t)
	w.subscribe(t, w.maker)
	w.place(t, w.agent)

	w.marks.getErr = errors.New("redis down")
	_, err := w.dispatcher.Poll(context.Background())
	require.Error(t, err)
	assert.Zero(t, w.source.calls)
}

func TestMarkSeenDoesNotMoveMarks(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.subscribe(t, w.maker)
	w.place(t, w.agent)
	w.poll(t)
	before := w.marks.snapshot()

	inbox := w.inbox(t, w.maker.ID)
	require.Len(t, inbox, 1)
	require.NoError(t, w.notify.MarkSeen(ctx, w.maker.ID, inbox[0].ID))
	assert.Equal(t, before, w.marks.snapshot())

	after := w.inbox(t, w.maker.ID)
	require.Len(t, after, 1)
	assert.True(t, after[0].Seen)
	assert.NotNil(t, after[0].SeenAt)

	w.poll(t)
	assert.Len(t, w.inbox(t, w.maker.ID), 1)
}

func TestReplayedCycleDoesNotDuplicate(t *testing.T) {
	w := newWorld(t)
	subs := w.subscribe(t, w.maker)
	w.place(t, w.agent)
	w.poll(t)

	// simulate a crash before the marks were written
	for _, sub := range subs {
		require.NoError(t, w.marks.Set(context.Background(), sub.Key, sub.StartRevision))
	}
	result := w.poll(t)
	assert.Zero(t, result.Emitted)
	assert.Len(t, w.inbox(t, w.maker.ID), 1)
}

func TestBatchedFetchCatchesUp(t *testing.T) {
	w := newWorld(t)
	w.subscribe(t, w.maker)
	for i := 0; i < 3; i++ {
		w.place(t, w.agent)
	}

	w.dispatcher.batch = 2
	first := w.poll(t)
	assert.Equal(t, int64(2), first.HeadRevision)
	assert.Len(t, w.inbox(t, w.maker.ID), 2)

	second := w.poll(t)
	assert.Equal(t, int64(3), second.HeadRevision)
	assert.Len(t, w.inbox(t, w.maker.ID), 3)
}

func TestPublishFailureStillStores(t *testing.T) {
	w := newWorld(t)
	w.subscribe(t, w.agent)
	w.publisher.err = errors.New("redis publish failed")

	w.place(t, w.agent)
	result := w.poll(t)
	assert.Equal(t, 1, result.Emitted)
	assert.Len(t, w.inbox(t, w.agent.ID), 1)
}

func TestNoSubscribersSkipsFetch(t *testing.T) {
	w := newWorld(t)
	w.place(t, w.agent)

	result := w.poll(t)
	assert.Zero(t, result.Subscribers)
	assert.Zero(t, w.source.calls)
}

func TestNewDispatcherValidatesDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	_, err := NewDispatcher(DispatcherParams{Logger: logg})
	assert.Error(t, err)

	_, err = NewDispatcher(DispatcherParams{
		Repo:      NewRepository(nil),
		Source:    &switchableSource{},
		Marks:     newMemoryMarks(),
		Publisher: &recordingPublisher{},
		Logger:    logg,
	})
	assert.Error(t, err, "publisher without channel")
}
