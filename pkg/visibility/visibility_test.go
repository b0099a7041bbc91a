package visibility

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

type fixture struct {
	agent, manufacturerA, manufacturerB, truck uuid.UUID

	agentOrder     models.Order // placed by agent, owned by A
	unclaimed      models.Order // placed by agent, no owner
	placedByA      models.Order // placed upstream by A, owned by B
	unclaimedTaken models.Order // no owner, already assigned to truck
	ownedByBOnly   models.Order // placed by agent, owned by B
}

func newFixture() fixture {
	f := fixture{agent: uuid.New(), manufacturerA: uuid.New(), manufacturerB: uuid.New(), truck: uuid.New()}
	a, b, truck := f.manufacturerA, f.manufacturerB, f.truck
	f.agentOrder = models.Order{ID: uuid.New(), PlacedBy: f.agent, OwnerManufacturerID: &a, Status: enums.OrderStatusPending}
	f.unclaimed = models.Order{ID: uuid.New(), PlacedBy: f.agent, Status: enums.OrderStatusPending}
	f.placedByA = models.Order{ID: uuid.New(), PlacedBy: a, OwnerManufacturerID: &b, Status: enums.OrderStatusPending}
	f.unclaimedTaken = models.Order{ID: uuid.New(), PlacedBy: f.agent, AssignedFulfillerID: &truck, Status: enums.OrderStatusInProgress}
	f.ownedByBOnly = models.Order{ID: uuid.New(), PlacedBy: f.agent, OwnerManufacturerID: &b, Status: enums.OrderStatusPending}
	return f
}

func (f fixture) all() []models.Order {
	return []models.Order{f.agentOrder, f.unclaimed, f.placedByA, f.unclaimedTaken, f.ownedByBOnly}
}

func ids(orders []models.Order) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestFilterAgentSeesOwnOrders(t *testing.T) {
	f := newFixture()
	caller := Caller{ID: f.agent, Role: enums.RoleAgent}

	got := Filter(f.all(), caller, enums.OrderViewOwn, Policy{OpenMarketplace: true})
	assert.ElementsMatch(t, []uuid.UUID{f.agentOrder.ID, f.unclaimed.ID, f.unclaimedTaken.ID, f.ownedByBOnly.ID}, ids(got))
}

func TestFilterManufacturerViewsAreDisjoint(t *testing.T) {
	f := newFixture()
	caller := Caller{ID: f.manufacturerA, Role: enums.RoleManufacturer}
	policy := Policy{OpenMarketplace: true}

	own := Filter(f.all(), caller, enums.OrderViewOwn, policy)
	incoming := Filter(f.all(), caller, enums.OrderViewIncoming, policy)

	assert.Equal(t, []uuid.UUID{f.placedByA.ID}, ids(own))
	assert.ElementsMatch(t, []uuid.UUID{f.agentOrder.ID, f.unclaimed.ID, f.ownedByBOnly.ID}, ids(incoming))
	for _, o := range own {
		assert.NotContains(t, ids(incoming), o.ID)
	}
}

func TestVisibleIncomingIncludesOrdersOwnedByOthers(t *testing.T) {
	f := newFixture()
	caller := Caller{ID: f.manufacturerA, Role: enums.RoleManufacturer}

	assert.True(t, Visible(&f.ownedByBOnly, caller, enums.OrderViewIncoming, Policy{OpenMarketplace: true}))
	assert.True(t, Visible(&f.ownedByBOnly, caller, enums.OrderViewIncoming, Policy{}))
	assert.False(t, Visible(&f.placedByA, caller, enums.OrderViewIncoming, Policy{OpenMarketplace: true}))
}

func TestFilterClosedMarketplaceHidesUnclaimed(t *testing.T) {
	f := newFixture()
	caller := Caller{ID: f.manufacturerA, Role: enums.RoleManufacturer}

	incoming := Filter(f.all(), caller, enums.OrderViewIncoming, Policy{OpenMarketplace: false})
	assert.ElementsMatch(t, []uuid.UUID{f.agentOrder.ID, f.ownedByBOnly.ID}, ids(incoming))
}

func TestFilterOwnerScopedIncoming(t *testing.T) {
	f := newFixture()
	caller := Caller{ID: f.manufacturerA, Role: enums.RoleManufacturer}

	open := Filter(f.all(), caller, enums.OrderViewIncoming, Policy{OpenMarketplace: true, OwnerScopedIncoming: true})
	assert.ElementsMatch(t, []uuid.UUID{f.agentOrder.ID, f.unclaimed.ID}, ids(open))

	closed := Filter(f.all(), caller, enums.OrderViewIncoming, Policy{OwnerScopedIncoming: true})
	assert.Equal(t, []uuid.UUID{f.agentOrder.ID}, ids(closed))
}

func TestPolicyFor(t *testing.T) {
	policy := PolicyFor(config.OrdersConfig{OpenMarketplace: true, OwnerScopedIncoming: true})
	assert.Equal(t, Policy{OpenMarketplace: true, OwnerScopedIncoming: true}, policy)
	assert.Equal(t, Policy{}, PolicyFor(config.OrdersConfig{}))
}

func TestFilterSuperAdminSeesEverything(t *testing.T) {
	f := newFixture()
	caller := Caller{ID: uuid.New(), Role: enums.RoleSuperAdmin}

	got := Filter(f.all(), caller, enums.OrderViewAll, Policy{})
	assert.Len(t, got, len(f.all()))
}

func TestFilterFulfillersSeeAssignedOnly(t *testing.T) {
	f := newFixture()
	for _, role := range []enums.Role{enums.RoleTruckOwner, enums.RoleDriver} {
		caller := Caller{ID: f.truck, Role: role}
		got := Filter(f.all(), caller, enums.OrderViewAssigned, Policy{OpenMarketplace: true})
		assert.Equal(t, []uuid.UUID{f.unclaimedTaken.ID}, ids(got), role)
	}
}

func TestFilterRejectsViewOutsideRole(t *testing.T) {
	f := newFixture()
	caller := Caller{ID: f.agent, Role: enums.RoleAgent}

	assert.Empty(t, Filter(f.all(), caller, enums.OrderViewAll, Policy{}))
	assert.Empty(t, Filter(f.all(), caller, enums.OrderViewIncoming, Policy{OpenMarketplace: true}))
}

func TestFilterIsPure(t *testing.T) {
	f := newFixture()
	input := f.all()
	before := make([]models.Order, len(input))
	for i := range input {
		before[i] = *input[i].Clone()
	}
	caller := Caller{ID: f.manufacturerA, Role: enums.RoleManufacturer}

	first := Filter(input, caller, enums.OrderViewIncoming, Policy{OpenMarketplace: true})
	second := Filter(input, caller, enums.OrderViewIncoming, Policy{OpenMarketplace: true})
	assert.Equal(t, first, second)
	assert.Equal(t, before, input)

	first[0].Status = enums.OrderStatusShipped
	assert.Equal(t, enums.OrderStatusPending, input[0].Status)
}

func TestVisibleToCallerAcrossViews(t *testing.T) {
	f := newFixture()
	caller := Caller{ID: f.manufacturerA, Role: enums.RoleManufacturer}
	policy := Policy{OpenMarketplace: true}

	assert.True(t, VisibleToCaller(&f.placedByA, caller, policy))
	assert.True(t, VisibleToCaller(&f.agentOrder, caller, policy))
	assert.True(t, VisibleToCaller(&f.ownedByBOnly, caller, policy))
	assert.False(t, VisibleToCaller(&f.ownedByBOnly, caller, Policy{OpenMarketplace: true, OwnerScopedIncoming: true}))
	assert.False(t, VisibleToCaller(nil, caller, policy))
}

func TestResolveView(t *testing.T) {
	manufacturer := Caller{ID: uuid.New(), Role: enums.RoleManufacturer}

	view, err := ResolveView(manufacturer, "")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderViewOwn, view)

	view, err = ResolveView(manufacturer, " Incoming ")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderViewIncoming, view)

	_, err = ResolveView(manufacturer, "all")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = ResolveView(manufacturer, "everything")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCallerValidate(t *testing.T) {
	require.NoError(t, Caller{ID: uuid.New(), Role: enums.RoleDriver}.Validate())
	require.Error(t, Caller{Role: enums.RoleDriver}.Validate())
	require.Error(t, Caller{ID: uuid.New(), Role: "guest"}.Validate())
}
