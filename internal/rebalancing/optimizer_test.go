package rebalancing

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/richxcame/fleet-engine/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var depot = geo.GeoPoint{Latitude: 0, Longitude: 0}

func routable(required int, lat, lng float64) *RoutableTask {
	return &RoutableTask{
		Task: Task{
			ID:            uuid.New(),
			StationID:     uuid.New(),
			RequiredCount: required,
			Status:        StatusPending,
		},
		Location: geo.GeoPoint{Latitude: lat, Longitude: lng},
	}
}

func stopIDs(routes []Route) []uuid.UUID {
	var ids []uuid.UUID
	for _, r := range routes {
		for _, s := range r.Stops {
			ids = append(ids, s.TaskID)
		}
	}
	return ids
}

func TestBuildRoutes_Empty(t *testing.T) {
	routes := BuildRoutes(nil, depot, 20)

	require.NotNil(t, routes)
	assert.Empty(t, routes)
}

func TestBuildRoutes_SkipsNonPending(t *testing.T) {
	done := routable(-3, 0.01, 0)
	done.Status = StatusCompleted
	active := routable(-3, 0.02, 0)
	active.Status = StatusInProgress
	pending := routable(-3, 0.03, 0)

	routes := BuildRoutes([]*RoutableTask{done, active, pending}, depot, 20)

	assert.Equal(t, []uuid.UUID{pending.ID}, stopIDs(routes))
}

func TestBuildRoutes_NearestNeighborOrder(t *testing.T) {
	far := routable(-1, 0.03, 0)
	near := routable(-1, 0.01, 0)
	mid := routable(-1, 0.02, 0)

	routes := BuildRoutes([]*RoutableTask{far, near, mid}, depot, 20)

	require.Len(t, routes, 1)
	assert.Equal(t, []uuid.UUID{near.ID, mid.ID, far.ID}, stopIDs(routes))
	for _, s := range routes[0].Stops {
		assert.Equal(t, ActionPickup, s.RequiredAction)
		assert.Equal(t, 1, s.Count)
	}
}

func TestBuildRoutes_TieGoesToFirstInList(t *testing.T) {
	north := routable(-1, 0.01, 0)
	south := routable(-1, -0.01, 0)

	routes := BuildRoutes([]*RoutableTask{north, south}, depot, 20)
	assert.Equal(t, []uuid.UUID{north.ID, south.ID}, stopIDs(routes))

	routes = BuildRoutes([]*RoutableTask{south, north}, depot, 20)
	assert.Equal(t, []uuid.UUID{south.ID, north.ID}, stopIDs(routes))
}

func TestBuildRoutes_PickupsBeforeDropoffs(t *testing.T) {
	dropoff := routable(2, 0.001, 0)
	pickup := routable(-2, 0.05, 0)

	routes := BuildRoutes([]*RoutableTask{dropoff, pickup}, depot, 20)

	require.Len(t, routes, 1)
	require.Len(t, routes[0].Stops, 2)
	assert.Equal(t, ActionPickup, routes[0].Stops[0].RequiredAction)
	assert.Equal(t, ActionDropoff, routes[0].Stops[1].RequiredAction)
}

func TestBuildRoutes_PickupCapacitySplitsRoutes(t *testing.T) {
	a := routable(-8, 0.01, 0)
	b := routable(-8, 0.02, 0)
	c := routable(-8, 0.03, 0)

	routes := BuildRoutes([]*RoutableTask{a, b, c}, depot, 20)

	require.Len(t, routes, 2)
	assert.Len(t, routes[0].Stops, 2)
	assert.Len(t, routes[1].Stops, 1)
	assert.Equal(t, c.ID, routes[1].Stops[0].TaskID)
}

func TestBuildRoutes_ExactCapacityClosesRoute(t *testing.T) {
	a := routable(-10, 0.01, 0)
	b := routable(-10, 0.02, 0)
	c := routable(-1, 0.03, 0)

	routes := BuildRoutes([]*RoutableTask{a, b, c}, depot, 20)

	require.Len(t, routes, 2)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, stopIDs(routes[:1]))
	assert.Equal(t, []uuid.UUID{c.ID}, stopIDs(routes[1:]))
}

func TestBuildRoutes_DropoffsSplitWhenVehicleRunsLow(t *testing.T) {
	a := routable(6, 0.01, 0)
	b := routable(6, 0.02, 0)

	routes := BuildRoutes([]*RoutableTask{a, b}, depot, 10)

	require.Len(t, routes, 2)
	assert.Equal(t, a.ID, routes[0].Stops[0].TaskID)
	assert.Equal(t, b.ID, routes[1].Stops[0].TaskID)
}

func TestBuildRoutes_StockedRouteServesSeveralDropoffs(t *testing.T) {
	a := routable(3, 0.01, 0)
	b := routable(3, 0.02, 0)
	c := routable(4, 0.03, 0)

	routes := BuildRoutes([]*RoutableTask{a, b, c}, depot, 10)

	require.Len(t, routes, 1)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, stopIDs(routes))
}

func TestBuildRoutes_DropoffsUsePickedUpVehicles(t *testing.T) {
	pickup := routable(-5, 0.01, 0)
	dropoff := routable(3, 0.02, 0)

	routes := BuildRoutes([]*RoutableTask{pickup, dropoff}, depot, 20)

	require.Len(t, routes, 1)
	assert.Equal(t, []uuid.UUID{pickup.ID, dropoff.ID}, stopIDs(routes))
}

func TestBuildRoutes_OversizeTaskGetsOwnRoute(t *testing.T) {
	small := routable(-2, 0.01, 0)
	huge := routable(-25, 0.02, 0)
	after := routable(-2, 0.03, 0)

	routes := BuildRoutes([]*RoutableTask{small, huge, after}, depot, 20)

	require.Len(t, routes, 3)
	assert.Equal(t, []uuid.UUID{huge.ID}, stopIDs(routes[1:2]))
}

func TestBuildRoutes_DistanceAndDuration(t *testing.T) {
	a := routable(-10, 0.01, 0)
	b := routable(-10, 0.02, 0)
	c := routable(-1, 0.03, 0)

	routes := BuildRoutes([]*RoutableTask{a, b, c}, depot, 20)
	require.Len(t, routes, 2)

	first := geo.DistanceMeters(depot, a.Location) + geo.DistanceMeters(a.Location, b.Location)
	assert.InDelta(t, first, routes[0].TotalDistance, 1e-6)
	assert.InDelta(t, first/1000*3, routes[0].EstimatedDuration, 1e-9)

	// the second route continues from where the first ended
	second := geo.DistanceMeters(b.Location, c.Location)
	assert.InDelta(t, second, routes[1].TotalDistance, 1e-6)
}

func TestBuildRoutes_ZeroRequiredCountIgnored(t *testing.T) {
	routes := BuildRoutes([]*RoutableTask{routable(0, 0.01, 0)}, depot, 20)
	assert.Empty(t, routes)
}

func randomTasks(r *rand.Rand, n, capacity int) []*RoutableTask {
	tasks := make([]*RoutableTask, 0, n)
	for i := 0; i < n; i++ {
		magnitude := 1 + r.Intn(capacity)
		if r.Intn(2) == 0 {
			magnitude = -magnitude
		}
		tasks = append(tasks, routable(magnitude, r.Float64()*0.2-0.1, r.Float64()*0.2-0.1))
	}
	return tasks
}

func TestBuildRoutes_CapacityInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		capacity := 1 + r.Intn(25)
		tasks := randomTasks(r, r.Intn(30), capacity)

		for _, route := range BuildRoutes(tasks, depot, capacity) {
			require.NotEmpty(t, route.Stops)

			load := capacity
			if route.Stops[0].RequiredAction == ActionPickup {
				load = 0
			}
			for _, stop := range route.Stops {
				if stop.RequiredAction == ActionPickup {
					load += stop.Count
				} else {
					load -= stop.Count
				}
				assert.LessOrEqual(t, load, capacity, "trial %d", trial)
				assert.GreaterOrEqual(t, load, 0, "trial %d", trial)
			}
		}
	}
}

func TestBuildRoutes_EveryPendingTaskRoutedOnce(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for trial := 0; trial < 100; trial++ {
		tasks := randomTasks(r, 1+r.Intn(40), 20)

		seen := map[uuid.UUID]int{}
		for _, id := range stopIDs(BuildRoutes(tasks, depot, 20)) {
			seen[id]++
		}

		require.Len(t, seen, len(tasks))
		for _, task := range tasks {
			assert.Equal(t, 1, seen[task.ID])
		}
	}
}

func TestBuildRoutes_Deterministic(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	tasks := randomTasks(r, 25, 15)

	first := BuildRoutes(tasks, depot, 15)
	second := BuildRoutes(tasks, depot, 15)

	assert.Equal(t, first, second)
}
