package forecast

import (
	"time"

	"github.com/google/uuid"
)

// WeatherCondition is the coarse weather bucket a forecast hour is computed for
type WeatherCondition string

const (
	WeatherClear  WeatherCondition = "CLEAR"
	WeatherCloudy WeatherCondition = "CLOUDY"
	WeatherRain   WeatherCondition = "RAIN"
	WeatherSnow   WeatherCondition = "SNOW"
	WeatherFog    WeatherCondition = "FOG"
	WeatherStorm  WeatherCondition = "STORM"
)

// DemandFactors is the contextual input for one forecast hour
type DemandFactors struct {
	TimeOfDay        int              `json:"time_of_day" validate:"min=0,max=23"`
	DayOfWeek        int              `json:"day_of_week" validate:"min=0,max=6"`
	IsHoliday        bool             `json:"is_holiday"`
	WeatherCondition WeatherCondition `json:"weather_condition" validate:"required,weather_condition"`
	Temperature      float64          `json:"temperature"`
	Precipitation    float64          `json:"precipitation" validate:"gte=0"`
	NearbyEvents     int              `json:"nearby_events" validate:"gte=0"`
}

// DemandForecast is the predicted demand for one station and hour
type DemandForecast struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	StationID       uuid.UUID     `json:"station_id" db:"station_id"`
	Timestamp       time.Time     `json:"timestamp" db:"timestamp"`
	PredictedDemand int           `json:"predicted_demand" db:"predicted_demand"`
	Confidence      float64       `json:"confidence" db:"confidence"`
	Factors         DemandFactors `json:"factors" db:"factors"`
	ActualDemand    *int          `json:"actual_demand,omitempty" db:"actual_demand"`
	Accuracy        *float64      `json:"accuracy,omitempty" db:"accuracy"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// Reconciled reports whether the actual demand has been recorded.
func (f *DemandForecast) Reconciled() bool {
	return f.ActualDemand != nil && f.Accuracy != nil
}

// TimeRange is a closed time interval
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ForecastMetrics aggregates accuracy over reconciled forecasts
type ForecastMetrics struct {
	StationID       uuid.UUID `json:"station_id"`
	TotalForecasts  int       `json:"total_forecasts"`
	AverageAccuracy float64   `json:"average_accuracy"`
	MAPE            float64   `json:"mape"`
	Range           TimeRange `json:"range"`
}

// ========================================
// API TYPES
// ========================================

// GenerateForecastRequest asks for hourly forecasts starting at StartTime
type GenerateForecastRequest struct {
	StationID uuid.UUID       `json:"station_id" binding:"required"`
	StartTime time.Time       `json:"start_time" binding:"required"`
	EndTime   time.Time       `json:"end_time" binding:"required"`
	Factors   []DemandFactors `json:"factors" validate:"dive"`
}

// UpdateAccuracyRequest records the observed demand for a forecast hour
type UpdateAccuracyRequest struct {
	StationID    uuid.UUID `json:"station_id" binding:"required"`
	Timestamp    time.Time `json:"timestamp" binding:"required"`
	ActualDemand int       `json:"actual_demand" validate:"gte=0"`
}
