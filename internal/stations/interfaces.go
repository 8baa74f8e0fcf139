package stations

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/fleet-engine/internal/forecast"
)

// RepositoryInterface defines the interface for station data access.
type RepositoryInterface interface {
	GetStationByID(ctx context.Context, id uuid.UUID) (*Station, error)
	GetStationsByZone(ctx context.Context, zoneID string) ([]*Station, error)
	ListStations(ctx context.Context) ([]*Station, error)
	AdjustCount(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

// ForecastReader supplies the most recent forecast for a station.
type ForecastReader interface {
	GetLatestForecast(ctx context.Context, stationID uuid.UUID) (*forecast.DemandForecast, error)
}

var (
	_ RepositoryInterface = (*Repository)(nil)
	_ ForecastReader      = (*forecast.Service)(nil)
)
