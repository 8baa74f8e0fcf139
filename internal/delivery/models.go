package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/fleet-engine/pkg/geo"
)

// TrafficLevel is the estimated congestion on a segment
type TrafficLevel string

const (
	TrafficLow    TrafficLevel = "low"
	TrafficMedium TrafficLevel = "medium"
	TrafficHigh   TrafficLevel = "high"
)

// Result statuses
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
)

// Vehicle is a delivery vehicle available for the day
type Vehicle struct {
	ID            uuid.UUID     `json:"id" binding:"required"`
	Capacity      int           `json:"capacity"`
	StartLocation *geo.GeoPoint `json:"start_location"`
	EndLocation   *geo.GeoPoint `json:"end_location"`
}

// Stop is a delivery location with the load dropped there
type Stop struct {
	ID       uuid.UUID    `json:"id" binding:"required"`
	Location geo.GeoPoint `json:"location"`
	Load     int          `json:"load"`
	Address  string       `json:"address,omitempty"`
}

// ScheduledStop is a stop with its planned timing on a route
type ScheduledStop struct {
	Stop
	Sequence      int       `json:"sequence"`
	ArrivalTime   time.Time `json:"arrival_time"`
	DepartureTime time.Time `json:"departure_time"`
}

// Segment is the leg between two consecutive stops. Distance is in meters,
// duration in seconds.
type Segment struct {
	FromStopID   uuid.UUID    `json:"from_stop_id"`
	ToStopID     uuid.UUID    `json:"to_stop_id"`
	Distance     float64      `json:"distance"`
	Duration     float64      `json:"duration"`
	TrafficLevel TrafficLevel `json:"traffic_level"`
	Polyline     string       `json:"polyline"`
}

// Route is the ordered plan for one vehicle
type Route struct {
	VehicleID     uuid.UUID       `json:"vehicle_id"`
	Stops         []ScheduledStop `json:"stops"`
	Segments      []Segment       `json:"segments"`
	TotalDistance float64         `json:"total_distance"`
	TotalDuration float64         `json:"total_duration"`
	TotalStops    int             `json:"total_stops"`
	TotalLoad     int             `json:"total_load"`
	Utilization   float64         `json:"utilization"`
}

// Summary aggregates every route of a result
type Summary struct {
	TotalRoutes        int     `json:"total_routes"`
	TotalDistance      float64 `json:"total_distance"`
	TotalDuration      float64 `json:"total_duration"`
	TotalStops         int     `json:"total_stops"`
	TotalLoad          int     `json:"total_load"`
	AverageUtilization float64 `json:"average_utilization"`
}

// OptimizationResult is the output of a multi-stop optimization
type OptimizationResult struct {
	Routes      []Route   `json:"routes"`
	Summary     Summary   `json:"summary"`
	Status      string    `json:"status"`
	OptimizedAt time.Time `json:"optimized_at"`
}

// OptimizeRequest represents a multi-stop route optimization request
type OptimizeRequest struct {
	Vehicles []Vehicle `json:"vehicles" binding:"required,dive"`
	Stops    []Stop    `json:"stops" binding:"dive"`
	Date     time.Time `json:"date" binding:"required"`
}
