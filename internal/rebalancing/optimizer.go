package rebalancing

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/fleet-engine/pkg/eventbus"
	"github.com/richxcame/fleet-engine/pkg/geo"
	"github.com/richxcame/fleet-engine/pkg/logger"
	"go.uber.org/zap"
)

// minutesPerKm is the travel-time heuristic for rebalancing vans
const minutesPerKm = 3.0

var (
	routesBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_rebalancing_routes_built_total",
		Help: "Total number of rebalancing routes built",
	}, []string{"mode"})

	optimizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleet_rebalancing_optimize_duration_seconds",
		Help:    "Time spent loading tasks and building rebalancing routes",
		Buckets: prometheus.DefBuckets,
	})
)

// ========================================
// ROUTE BUILDING
// ========================================

// BuildRoutes partitions the PENDING tasks into capacity-bounded routes
// starting at start. Pickups (negative RequiredCount) are visited before
// dropoffs, each phase as a nearest-neighbor walk. Equal distances go to the
// task that comes first in tasks.
//
// A route never carries more than capacity vehicles and never drops off more
// than it carries, except for a single task whose magnitude alone exceeds
// capacity; such a task gets a route of its own.
//
// Dropoff load is the stock on board, not a running sum of deliveries: a
// dropoff route starts with capacity vehicles and each stop subtracts its
// count, so one route serves several dropoffs until the stock runs out. A
// stop needing more than is left closes the route and opens a restocked one.
func BuildRoutes(tasks []*RoutableTask, start geo.GeoPoint, capacity int) []Route {
	eligible := make([]*RoutableTask, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == StatusPending {
			eligible = append(eligible, t)
		}
	}
	return buildRoutes(eligible, start, capacity)
}

func buildRoutes(tasks []*RoutableTask, start geo.GeoPoint, capacity int) []Route {
	var pickups, dropoffs []*RoutableTask
	for _, t := range tasks {
		switch {
		case t.RequiredCount < 0:
			pickups = append(pickups, t)
		case t.RequiredCount > 0:
			dropoffs = append(dropoffs, t)
		}
	}

	b := &routeBuilder{capacity: capacity, position: start}

	// Pickups: load grows from empty.
	for len(pickups) > 0 {
		var t *RoutableTask
		t, pickups = b.nearest(pickups)
		count := t.Magnitude()
		if b.load > 0 && b.load+count > capacity {
			b.close()
		}
		b.visit(t, ActionPickup, count)
		b.load += count
		if b.load >= capacity {
			b.close()
		}
	}

	// Dropoffs: a fresh route leaves fully stocked.
	for len(dropoffs) > 0 {
		var t *RoutableTask
		t, dropoffs = b.nearest(dropoffs)
		count := t.Magnitude()
		if b.empty() {
			b.load = capacity
		} else if count > b.load {
			b.close()
			b.load = capacity
		}
		b.visit(t, ActionDropoff, count)
		b.load -= count
		if b.load <= 0 {
			b.close()
		}
	}

	b.close()
	if b.routes == nil {
		return []Route{}
	}
	return b.routes
}

type routeBuilder struct {
	capacity int
	position geo.GeoPoint
	load     int
	current  Route
	routes   []Route
}

// nearest removes and returns the task closest to the current position
func (b *routeBuilder) nearest(tasks []*RoutableTask) (*RoutableTask, []*RoutableTask) {
	best := 0
	bestDistance := geo.DistanceMeters(b.position, tasks[0].Location)
	for i := 1; i < len(tasks); i++ {
		if d := geo.DistanceMeters(b.position, tasks[i].Location); d < bestDistance {
			best, bestDistance = i, d
		}
	}

	chosen := tasks[best]
	rest := make([]*RoutableTask, 0, len(tasks)-1)
	rest = append(rest, tasks[:best]...)
	rest = append(rest, tasks[best+1:]...)
	return chosen, rest
}

func (b *routeBuilder) visit(t *RoutableTask, action Action, count int) {
	distance := geo.DistanceMeters(b.position, t.Location)
	b.current.Stops = append(b.current.Stops, RouteStop{
		TaskID:         t.ID,
		StationID:      t.StationID,
		Location:       t.Location,
		RequiredAction: action,
		Count:          count,
	})
	b.current.TotalDistance += distance
	b.current.EstimatedDuration += distance / 1000 * minutesPerKm
	b.position = t.Location
}

func (b *routeBuilder) empty() bool {
	return len(b.current.Stops) == 0
}

// close finishes the current route; the next one starts from the last stop
func (b *routeBuilder) close() {
	if !b.empty() {
		b.routes = append(b.routes, b.current)
	}
	b.current = Route{}
	b.load = 0
}

// ========================================
// OPTIMIZE / DISPATCH
// ========================================

func (s *Service) capacityOrDefault(capacity int) int {
	if capacity <= 0 {
		return s.defaultCapacity
	}
	return capacity
}

// Optimize builds routes over the PENDING tasks among taskIDs without
// changing any task. Unknown or non-pending ids are ignored.
func (s *Service) Optimize(ctx context.Context, taskIDs []uuid.UUID, location geo.GeoPoint, capacity int) ([]Route, error) {
	timer := prometheus.NewTimer(optimizeDuration)
	defer timer.ObserveDuration()

	if len(taskIDs) == 0 {
		return []Route{}, nil
	}

	tasks, err := s.repo.GetRoutableTasks(ctx, taskIDs)
	if err != nil {
		return nil, err
	}

	routes := BuildRoutes(tasks, location, s.capacityOrDefault(capacity))
	routesBuilt.WithLabelValues("optimize").Add(float64(len(routes)))

	logger.InfoContext(ctx, "rebalancing routes optimized",
		zap.Int("requested_tasks", len(taskIDs)),
		zap.Int("routes", len(routes)),
	)
	return routes, nil
}

// Dispatch claims the PENDING tasks among taskIDs and routes the claimed
// ones. Tasks claimed by a concurrent dispatch are left out.
func (s *Service) Dispatch(ctx context.Context, taskIDs []uuid.UUID, location geo.GeoPoint, capacity int) ([]Route, error) {
	timer := prometheus.NewTimer(optimizeDuration)
	defer timer.ObserveDuration()

	if len(taskIDs) == 0 {
		return []Route{}, nil
	}

	claimed, err := s.repo.ClaimPendingTasks(ctx, taskIDs)
	if err != nil {
		return nil, err
	}

	routes := buildRoutes(claimed, location, s.capacityOrDefault(capacity))
	routesBuilt.WithLabelValues("dispatch").Add(float64(len(routes)))

	ids := make([]uuid.UUID, 0, len(claimed))
	var total float64
	for _, r := range routes {
		total += r.TotalDistance
		for _, stop := range r.Stops {
			ids = append(ids, stop.TaskID)
		}
	}

	logger.InfoContext(ctx, "rebalancing routes dispatched",
		zap.Int("requested_tasks", len(taskIDs)),
		zap.Int("claimed_tasks", len(claimed)),
		zap.Int("routes", len(routes)),
	)

	if len(routes) > 0 {
		s.publishEvent(ctx, eventbus.SubjectRoutesBuilt, eventbus.RoutesBuiltData{
			TaskIDs:       ids,
			RouteCount:    len(routes),
			TotalDistance: total,
			BuiltAt:       s.now(),
		})
	}
	return routes, nil
}
