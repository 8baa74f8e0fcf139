package stations

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/fleet-engine/pkg/geo"
)

// Priority is the urgency of rebalancing a station
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Rank orders priorities from LOW (0) to CRITICAL (3); unknown values rank -1.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return -1
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// Station is a dock or parking zone holding fleet vehicles
type Station struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	Location     geo.GeoPoint `json:"location"`
	CurrentCount int          `json:"current_count" db:"current_count"`
	MinThreshold int          `json:"min_threshold" db:"min_threshold"`
	MaxThreshold *int         `json:"max_threshold,omitempty" db:"max_threshold"`
	ZoneID       string       `json:"zone_id" db:"zone_id"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// BalanceEvaluation is the signed imbalance of a station and its priority.
// A negative CurrentImbalance is a shortage, a positive MaxImbalance a surplus.
type BalanceEvaluation struct {
	StationID        uuid.UUID `json:"station_id"`
	ZoneID           string    `json:"zone_id,omitempty"`
	CurrentImbalance int       `json:"current_imbalance"`
	MaxImbalance     int       `json:"max_imbalance"`
	PredictedDemand  int       `json:"predicted_demand"`
	Priority         Priority  `json:"priority"`
}

// Shortage reports whether the station is below its minimum threshold.
func (e BalanceEvaluation) Shortage() bool {
	return e.CurrentImbalance < 0
}

// Surplus reports whether the station is above its maximum threshold.
func (e BalanceEvaluation) Surplus() bool {
	return !e.Shortage() && e.MaxImbalance > 0
}

// CorrectionCount is the signed number of vehicles to move: positive for
// dropoffs into a short station, negative for pickups from a full one.
func (e BalanceEvaluation) CorrectionCount() int {
	switch {
	case e.Shortage():
		return -e.CurrentImbalance
	case e.Surplus():
		return -e.MaxImbalance
	default:
		return 0
	}
}

// CellImbalance aggregates station imbalance over one H3 cell
type CellImbalance struct {
	Cell            string       `json:"cell"`
	Center          geo.GeoPoint `json:"center"`
	Stations        int          `json:"stations"`
	Vehicles        int          `json:"vehicles"`
	NetCorrection   int          `json:"net_correction"`
	HighestPriority Priority     `json:"highest_priority"`
}

// AdjustCountRequest corrects a station's vehicle count after a manual recount
type AdjustCountRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// AdjustCountResponse reports the station count after an adjustment
type AdjustCountResponse struct {
	StationID    uuid.UUID `json:"station_id"`
	CurrentCount int       `json:"current_count"`
}
