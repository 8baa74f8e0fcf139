package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// TaskEventData is emitted when a rebalancing task is created or changes status.
type TaskEventData struct {
	TaskID        uuid.UUID `json:"task_id"`
	StationID     uuid.UUID `json:"station_id"`
	RequiredCount int       `json:"required_count"`
	CurrentCount  int       `json:"current_count"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RoutesBuiltData is emitted after rebalancing routes are dispatched.
type RoutesBuiltData struct {
	TaskIDs       []uuid.UUID `json:"task_ids"`
	RouteCount    int         `json:"route_count"`
	TotalDistance float64     `json:"total_distance_meters"`
	BuiltAt       time.Time   `json:"built_at"`
}

// ForecastsGeneratedData is emitted after a forecast run is persisted.
type ForecastsGeneratedData struct {
	StationID   uuid.UUID `json:"station_id"`
	Hours       int       `json:"hours"`
	FirstHour   time.Time `json:"first_hour"`
	TotalDemand int       `json:"total_demand"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BookingEventData is emitted when a booking is created or cancelled.
type BookingEventData struct {
	BookingID       uuid.UUID `json:"booking_id"`
	VehicleID       uuid.UUID `json:"vehicle_id"`
	UserID          uuid.UUID `json:"user_id"`
	Status          string    `json:"status"`
	Price           int64     `json:"price"`
	Occurrences     int       `json:"occurrences"`
	CancellationFee int64     `json:"cancellation_fee,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// DeliveryRoutesOptimizedData is emitted after a multi-stop optimization.
type DeliveryRoutesOptimizedData struct {
	Routes        int       `json:"routes"`
	TotalStops    int       `json:"total_stops"`
	TotalDistance float64   `json:"total_distance_meters"`
	Status        string    `json:"status"`
	OptimizedAt   time.Time `json:"optimized_at"`
}
