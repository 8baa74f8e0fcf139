package rebalancing

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/fleet-engine/internal/stations"
	"github.com/richxcame/fleet-engine/pkg/geo"
)

// Status represents the lifecycle state of a rebalancing task
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal reports whether no further status change is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Action is what a vehicle does at a route stop
type Action string

const (
	ActionPickup  Action = "pickup"
	ActionDropoff Action = "dropoff"
)

// Task is a persisted unit of rebalancing work. RequiredCount is signed:
// negative means vehicles must be removed, positive means delivered.
type Task struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	StationID     uuid.UUID         `json:"station_id" db:"station_id"`
	RequiredCount int               `json:"required_count" db:"required_count"`
	CurrentCount  int               `json:"current_count" db:"current_count"`
	Priority      stations.Priority `json:"priority" db:"priority"`
	Status        Status            `json:"status" db:"status"`
	StartTime     *time.Time        `json:"start_time,omitempty" db:"start_time"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	Notes         *string           `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// Action derives the route action from the sign of RequiredCount.
func (t *Task) Action() Action {
	if t.RequiredCount < 0 {
		return ActionPickup
	}
	return ActionDropoff
}

// Magnitude is the number of vehicles the task moves.
func (t *Task) Magnitude() int {
	if t.RequiredCount < 0 {
		return -t.RequiredCount
	}
	return t.RequiredCount
}

// StationDelta is the count change a finished task applies to its station.
func (t *Task) StationDelta() int {
	if t.RequiredCount < 0 {
		return -t.CurrentCount
	}
	return t.CurrentCount
}

// RoutableTask is a task joined with its station's location
type RoutableTask struct {
	Task
	Location geo.GeoPoint `json:"location"`
}

// TaskUpdate is a partial update; nil fields are left unchanged
type TaskUpdate struct {
	Status       *Status    `json:"status,omitempty"`
	CurrentCount *int       `json:"current_count,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// RouteStop is one station visit on a route
type RouteStop struct {
	TaskID         uuid.UUID    `json:"task_id"`
	StationID      uuid.UUID    `json:"station_id"`
	Location       geo.GeoPoint `json:"location"`
	RequiredAction Action       `json:"required_action"`
	Count          int          `json:"count"`
}

// Route is an ordered, capacity-bounded sequence of stops. Distances are in
// meters and durations in minutes.
type Route struct {
	Stops             []RouteStop `json:"stops"`
	TotalDistance     float64     `json:"total_distance"`
	EstimatedDuration float64     `json:"estimated_duration"`
}

// Metrics summarizes task throughput
type Metrics struct {
	TotalTasks                   int      `json:"total_tasks"`
	CompletedTasks               int      `json:"completed_tasks"`
	CriticalTasks                int      `json:"critical_tasks"`
	CompletionRate               float64  `json:"completion_rate"`
	AverageCompletionTimeMinutes *float64 `json:"average_completion_time_minutes"`
}

// CreateTaskRequest represents a request to create a rebalancing task
type CreateTaskRequest struct {
	StationID     uuid.UUID         `json:"station_id" binding:"required"`
	RequiredCount int               `json:"required_count" binding:"required"`
	Priority      stations.Priority `json:"priority" binding:"required"`
	Notes         *string           `json:"notes,omitempty"`
}

// OptimizeRequest represents a route optimization request
type OptimizeRequest struct {
	TaskIDs         []uuid.UUID  `json:"task_ids" binding:"required"`
	VehicleLocation geo.GeoPoint `json:"vehicle_location"`
	VehicleCapacity int          `json:"vehicle_capacity,omitempty"`
}

// OptimizeResponse wraps the computed routes
type OptimizeResponse struct {
	Routes     []Route `json:"routes"`
	RouteCount int     `json:"route_count"`
	TaskCount  int     `json:"task_count"`
}
