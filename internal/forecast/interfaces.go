package forecast

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryInterface defines the interface for forecast data access.
// This interface allows for mocking in tests.
type RepositoryInterface interface {
	// Station activity (pickups and dropoffs)
	GetStationActivity(ctx context.Context, stationID uuid.UUID, start, end time.Time) ([]time.Time, error)
	CountStationActivity(ctx context.Context, stationID uuid.UUID, start, end time.Time) (int, error)

	// Forecasts
	SaveForecasts(ctx context.Context, forecasts []*DemandForecast) error
	GetForecastForHour(ctx context.Context, stationID uuid.UUID, hour time.Time) (*DemandForecast, error)
	GetLatestForecast(ctx context.Context, stationID uuid.UUID) (*DemandForecast, error)
	GetReconciledForecasts(ctx context.Context, stationID uuid.UUID, start, end time.Time) ([]*DemandForecast, error)
	GetUnreconciledForecasts(ctx context.Context, endedBefore time.Time, limit int) ([]*DemandForecast, error)
	SetActualDemand(ctx context.Context, forecastID uuid.UUID, actualDemand int, accuracy float64) error
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
