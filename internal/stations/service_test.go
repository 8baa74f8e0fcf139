package stations

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/fleet-engine/internal/forecast"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/richxcame/fleet-engine/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ========================================
// MOCK DEFINITIONS
// ========================================

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetStationByID(ctx context.Context, id uuid.UUID) (*Station, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Station), args.Error(1)
}

func (m *mockRepository) GetStationsByZone(ctx context.Context, zoneID string) ([]*Station, error) {
	args := m.Called(ctx, zoneID)
	stations, _ := args.Get(0).([]*Station)
	return stations, args.Error(1)
}

func (m *mockRepository) ListStations(ctx context.Context) ([]*Station, error) {
	args := m.Called(ctx)
	stations, _ := args.Get(0).([]*Station)
	return stations, args.Error(1)
}

func (m *mockRepository) AdjustCount(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	args := m.Called(ctx, id, delta)
	return args.Int(0), args.Error(1)
}

type mockForecasts struct {
	mock.Mock
}

func (m *mockForecasts) GetLatestForecast(ctx context.Context, stationID uuid.UUID) (*forecast.DemandForecast, error) {
	args := m.Called(ctx, stationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*forecast.DemandForecast), args.Error(1)
}

// ========================================
// HELPERS
// ========================================

func intPtr(v int) *int { return &v }

func newStation(count, minThreshold int, maxThreshold *int) *Station {
	return &Station{
		ID:           uuid.New(),
		Name:         "Dock",
		Location:     geo.GeoPoint{Latitude: 40.7128, Longitude: -74.0060},
		CurrentCount: count,
		MinThreshold: minThreshold,
		MaxThreshold: maxThreshold,
		ZoneID:       "zone-1",
	}
}

func demand(n int) *forecast.DemandForecast {
	return &forecast.DemandForecast{PredictedDemand: n}
}

// ========================================
// EVALUATE
// ========================================

func TestEvaluate_Priorities(t *testing.T) {
	tests := []struct {
		name      string
		station   *Station
		latest    *forecast.DemandForecast
		imbalance int
		maxImb    int
		priority  Priority
	}{
		{"large shortage", newStation(2, 10, nil), demand(1), -8, 0, PriorityCritical},
		{"demand doubles stock", newStation(4, 5, nil), demand(9), -1, 0, PriorityCritical},
		{"moderate shortage", newStation(5, 8, nil), demand(0), -3, 0, PriorityHigh},
		{"demand outpaces stock", newStation(4, 5, nil), demand(7), -1, 0, PriorityHigh},
		{"small shortage", newStation(4, 5, nil), demand(4), -1, 0, PriorityMedium},
		{"large surplus", newStation(20, 5, intPtr(15)), demand(0), 15, 5, PriorityHigh},
		{"moderate surplus", newStation(18, 5, intPtr(15)), demand(0), 13, 3, PriorityMedium},
		{"small surplus", newStation(16, 5, intPtr(15)), demand(0), 11, 1, PriorityLow},
		{"balanced", newStation(10, 5, intPtr(15)), demand(3), 5, -5, PriorityLow},
		{"no max threshold", newStation(50, 5, nil), demand(3), 45, 0, PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := Evaluate(tt.station, tt.latest)
			assert.Equal(t, tt.imbalance, eval.CurrentImbalance)
			assert.Equal(t, tt.maxImb, eval.MaxImbalance)
			assert.Equal(t, tt.priority, eval.Priority)
			assert.Equal(t, tt.station.ID, eval.StationID)
		})
	}
}

func TestEvaluate_NoForecast(t *testing.T) {
	eval := Evaluate(newStation(3, 5, nil), nil)

	assert.Equal(t, 0, eval.PredictedDemand)
	assert.Equal(t, -2, eval.CurrentImbalance)
	assert.Equal(t, PriorityMedium, eval.Priority)
}

func TestEvaluate_ZeroStockWithDemand(t *testing.T) {
	eval := Evaluate(newStation(0, 1, nil), demand(1))
	assert.Equal(t, PriorityCritical, eval.Priority)
}

func TestEvaluate_PriorityMonotonicInShortage(t *testing.T) {
	for pd := 0; pd <= 20; pd += 5 {
		prev := -1
		for count := 10; count >= 0; count-- {
			eval := Evaluate(newStation(count, 10, nil), demand(pd))
			rank := eval.Priority.Rank()
			assert.GreaterOrEqual(t, rank, prev, "count=%d demand=%d", count, pd)
			prev = rank
		}
	}
}

func TestEvaluate_CorrectionCount(t *testing.T) {
	short := Evaluate(newStation(2, 5, intPtr(10)), nil)
	assert.Equal(t, 3, short.CorrectionCount())

	full := Evaluate(newStation(14, 5, intPtr(10)), nil)
	assert.Equal(t, -4, full.CorrectionCount())

	ok := Evaluate(newStation(7, 5, intPtr(10)), nil)
	assert.Equal(t, 0, ok.CorrectionCount())
}

// ========================================
// SERVICE
// ========================================

func TestEvaluateStation_Success(t *testing.T) {
	repo := new(mockRepository)
	forecasts := new(mockForecasts)
	svc := NewService(repo, forecasts)

	station := newStation(2, 10, nil)
	repo.On("GetStationByID", mock.Anything, station.ID).Return(station, nil)
	forecasts.On("GetLatestForecast", mock.Anything, station.ID).Return(demand(6), nil)

	eval, err := svc.EvaluateStation(context.Background(), station.ID)

	require.NoError(t, err)
	assert.Equal(t, 6, eval.PredictedDemand)
	assert.Equal(t, PriorityCritical, eval.Priority)
	repo.AssertExpectations(t)
	forecasts.AssertExpectations(t)
}

func TestEvaluateStation_NotFound(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockForecasts))

	id := uuid.New()
	repo.On("GetStationByID", mock.Anything, id).Return(nil, pgx.ErrNoRows)

	_, err := svc.EvaluateStation(context.Background(), id)

	require.Error(t, err)
	assert.True(t, common.IsNotFound(err))
	assert.ErrorIs(t, err, ErrStationNotFound)
}

func TestEvaluateStation_ForecastError(t *testing.T) {
	repo := new(mockRepository)
	forecasts := new(mockForecasts)
	svc := NewService(repo, forecasts)

	station := newStation(2, 10, nil)
	repo.On("GetStationByID", mock.Anything, station.ID).Return(station, nil)
	forecasts.On("GetLatestForecast", mock.Anything, station.ID).Return(nil, errors.New("db down"))

	_, err := svc.EvaluateStation(context.Background(), station.ID)

	require.Error(t, err)
	assert.False(t, common.IsNotFound(err))
}

func TestEvaluateZone_SortedByPriority(t *testing.T) {
	repo := new(mockRepository)
	forecasts := new(mockForecasts)
	svc := NewService(repo, forecasts)

	low := newStation(10, 5, intPtr(15))
	critical := newStation(0, 10, nil)
	medium := newStation(4, 5, nil)
	repo.On("GetStationsByZone", mock.Anything, "zone-1").Return([]*Station{low, critical, medium}, nil)
	forecasts.On("GetLatestForecast", mock.Anything, mock.Anything).Return(nil, nil)

	evals, err := svc.EvaluateZone(context.Background(), "zone-1")

	require.NoError(t, err)
	require.Len(t, evals, 3)
	assert.Equal(t, critical.ID, evals[0].StationID)
	assert.Equal(t, medium.ID, evals[1].StationID)
	assert.Equal(t, low.ID, evals[2].StationID)
}

func TestEvaluateZone_Empty(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockForecasts))

	repo.On("GetStationsByZone", mock.Anything, "nowhere").Return(nil, nil)

	evals, err := svc.EvaluateZone(context.Background(), "nowhere")

	require.NoError(t, err)
	assert.Empty(t, evals)
}

func TestImbalanceHeatmap_GroupsByCell(t *testing.T) {
	repo := new(mockRepository)
	forecasts := new(mockForecasts)
	svc := NewService(repo, forecasts)

	a := newStation(2, 5, intPtr(10))
	b := newStation(12, 5, intPtr(10))
	b.Location = a.Location
	far := newStation(1, 5, nil)
	far.Location = geo.GeoPoint{Latitude: 34.0522, Longitude: -118.2437}

	repo.On("GetStationsByZone", mock.Anything, "zone-1").Return([]*Station{a, b, far}, nil)
	forecasts.On("GetLatestForecast", mock.Anything, mock.Anything).Return(nil, nil)

	cells, err := svc.ImbalanceHeatmap(context.Background(), "zone-1", geo.H3ResolutionStation)

	require.NoError(t, err)
	require.Len(t, cells, 2)

	byCell := map[string]CellImbalance{}
	for _, c := range cells {
		byCell[c.Cell] = c
	}
	shared := byCell[geo.CellFor(a.Location, geo.H3ResolutionStation).String()]
	assert.Equal(t, 2, shared.Stations)
	assert.Equal(t, 14, shared.Vehicles)
	assert.Equal(t, 3-2, shared.NetCorrection)
	assert.Equal(t, PriorityHigh, shared.HighestPriority)

	lone := byCell[geo.CellFor(far.Location, geo.H3ResolutionStation).String()]
	assert.Equal(t, 1, lone.Stations)
	assert.Equal(t, 4, lone.NetCorrection)
}

func TestImbalanceHeatmap_InvalidResolution(t *testing.T) {
	svc := NewService(new(mockRepository), new(mockForecasts))

	_, err := svc.ImbalanceHeatmap(context.Background(), "zone-1", 16)

	require.Error(t, err)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
}

func TestAdjustCount(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockForecasts))

	id := uuid.New()
	repo.On("AdjustCount", mock.Anything, id, 3).Return(8, nil)

	count, err := svc.AdjustCount(context.Background(), id, 3)

	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestAdjustCount_NotFound(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockForecasts))

	id := uuid.New()
	repo.On("AdjustCount", mock.Anything, id, -2).Return(0, pgx.ErrNoRows)

	_, err := svc.AdjustCount(context.Background(), id, -2)

	assert.True(t, common.IsNotFound(err))
}
