package stations

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/fleet-engine/internal/forecast"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/richxcame/fleet-engine/pkg/geo"
	"github.com/richxcame/fleet-engine/pkg/logger"
	"go.uber.org/zap"
)

// ErrStationNotFound is wrapped by the NotFound AppError for unknown stations
var ErrStationNotFound = errors.New("station not found")

// Service evaluates station balance
type Service struct {
	repo      RepositoryInterface
	forecasts ForecastReader
}

// NewService creates a new station service
func NewService(repo RepositoryInterface, forecasts ForecastReader) *Service {
	return &Service{repo: repo, forecasts: forecasts}
}

// ========================================
// EVALUATION
// ========================================

// Evaluate computes a station's imbalance and priority. latest may be nil.
func Evaluate(station *Station, latest *forecast.DemandForecast) BalanceEvaluation {
	eval := BalanceEvaluation{
		StationID:        station.ID,
		ZoneID:           station.ZoneID,
		CurrentImbalance: station.CurrentCount - station.MinThreshold,
	}
	if station.MaxThreshold != nil {
		eval.MaxImbalance = station.CurrentCount - *station.MaxThreshold
	}
	if latest != nil {
		eval.PredictedDemand = latest.PredictedDemand
	}

	eval.Priority = priorityFor(eval, station.CurrentCount)
	return eval
}

func priorityFor(eval BalanceEvaluation, currentCount int) Priority {
	demand := float64(eval.PredictedDemand)
	count := float64(currentCount)

	if eval.CurrentImbalance < 0 {
		shortage := -eval.CurrentImbalance
		switch {
		case shortage >= 5 || demand > count*2:
			return PriorityCritical
		case shortage >= 3 || demand > count*1.5:
			return PriorityHigh
		default:
			return PriorityMedium
		}
	}

	if eval.MaxImbalance > 0 {
		switch {
		case eval.MaxImbalance >= 5:
			return PriorityHigh
		case eval.MaxImbalance >= 3:
			return PriorityMedium
		}
	}

	return PriorityLow
}

// GetStation returns a station or a NotFound error
func (s *Service) GetStation(ctx context.Context, stationID uuid.UUID) (*Station, error) {
	station, err := s.repo.GetStationByID(ctx, stationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("station not found", ErrStationNotFound)
		}
		return nil, err
	}
	return station, nil
}

// EvaluateStation loads a station and its latest forecast and evaluates it
func (s *Service) EvaluateStation(ctx context.Context, stationID uuid.UUID) (*BalanceEvaluation, error) {
	station, err := s.GetStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, station)
}

func (s *Service) evaluate(ctx context.Context, station *Station) (*BalanceEvaluation, error) {
	latest, err := s.forecasts.GetLatestForecast(ctx, station.ID)
	if err != nil {
		return nil, err
	}
	eval := Evaluate(station, latest)
	return &eval, nil
}

// EvaluateZone evaluates every station of a zone, most urgent first
func (s *Service) EvaluateZone(ctx context.Context, zoneID string) ([]*BalanceEvaluation, error) {
	stations, err := s.repo.GetStationsByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	return s.evaluateAll(ctx, stations)
}

// EvaluateAll evaluates every station in the fleet, most urgent first
func (s *Service) EvaluateAll(ctx context.Context) ([]*BalanceEvaluation, error) {
	stations, err := s.repo.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	return s.evaluateAll(ctx, stations)
}

func (s *Service) evaluateAll(ctx context.Context, stations []*Station) ([]*BalanceEvaluation, error) {
	evals := make([]*BalanceEvaluation, 0, len(stations))
	for _, station := range stations {
		eval, err := s.evaluate(ctx, station)
		if err != nil {
			return nil, err
		}
		evals = append(evals, eval)
	}

	sort.SliceStable(evals, func(i, j int) bool {
		ri, rj := evals[i].Priority.Rank(), evals[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return evals[i].StationID.String() < evals[j].StationID.String()
	})
	return evals, nil
}

// ========================================
// HEATMAP
// ========================================

// ImbalanceHeatmap groups a zone's stations into H3 cells and sums their
// correction counts. Cells are ordered by their index.
func (s *Service) ImbalanceHeatmap(ctx context.Context, zoneID string, resolution int) ([]CellImbalance, error) {
	if !geo.ValidResolution(resolution) {
		return nil, common.NewValidationError("resolution must be between 0 and 15")
	}

	stations, err := s.repo.GetStationsByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	cells := make(map[string]*CellImbalance)
	for _, station := range stations {
		eval, err := s.evaluate(ctx, station)
		if err != nil {
			return nil, err
		}

		cell := geo.CellFor(station.Location, resolution)
		key := cell.String()
		agg, ok := cells[key]
		if !ok {
			agg = &CellImbalance{
				Cell:            key,
				Center:          geo.CellCenter(cell),
				HighestPriority: PriorityLow,
			}
			cells[key] = agg
		}

		agg.Stations++
		agg.Vehicles += station.CurrentCount
		agg.NetCorrection += eval.CorrectionCount()
		if eval.Priority.Rank() > agg.HighestPriority.Rank() {
			agg.HighestPriority = eval.Priority
		}
	}

	result := make([]CellImbalance, 0, len(cells))
	for _, agg := range cells {
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Cell < result[j].Cell })
	return result, nil
}

// ========================================
// COUNT UPDATES
// ========================================

// AdjustCount adds delta to a station's vehicle count, clamped at zero.
// Completed rebalancing tasks apply their movement in their own transaction;
// this is for operator corrections.
func (s *Service) AdjustCount(ctx context.Context, stationID uuid.UUID, delta int) (int, error) {
	count, err := s.repo.AdjustCount(ctx, stationID, delta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.NewNotFoundError("station not found", ErrStationNotFound)
		}
		return 0, err
	}

	logger.InfoContext(ctx, "station count adjusted",
		zap.String("station_id", stationID.String()),
		zap.Int("delta", delta),
		zap.Int("current_count", count),
	)
	return count, nil
}
