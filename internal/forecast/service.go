package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/richxcame/fleet-engine/pkg/eventbus"
	"github.com/richxcame/fleet-engine/pkg/logger"
	"github.com/richxcame/fleet-engine/pkg/validation"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const (
	minConfidence     = 0.3
	maxConfidence     = 0.9
	historySaturation = 100.0

	// reconcileBatchSize bounds one ReconcilePending pass
	reconcileBatchSize = 500
)

var forecastsGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fleet_forecast_hours_generated_total",
	Help: "Total number of station-hour forecasts generated",
})

// Service handles demand forecasting and reconciliation
type Service struct {
	repo     RepositoryInterface
	eventBus eventbus.Publisher
	now      func() time.Time
}

// NewService creates a new forecast service
func NewService(repo RepositoryInterface) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// SetEventBus sets the event bus for publishing forecast events
func (s *Service) SetEventBus(bus eventbus.Publisher) {
	s.eventBus = bus
}

func (s *Service) publishEvent(ctx context.Context, subject string, data interface{}) {
	if s.eventBus == nil {
		return
	}
	correlationID := logger.CorrelationIDFromContext(ctx)
	go func() {
		evt, err := eventbus.NewEvent(subject, "forecast-service", data)
		if err != nil {
			logger.Warn("failed to create forecast event", zap.String("subject", subject), zap.Error(err))
			return
		}
		evt.CorrelationID = correlationID
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.eventBus.Publish(pubCtx, subject, evt); err != nil {
			logger.Warn("failed to publish forecast event", zap.String("subject", subject), zap.Error(err))
		}
	}()
}

// ========================================
// FORECAST GENERATION
// ========================================

// Forecast produces one forecast per factors entry. Entry i is for the hour
// start.Truncate(time.Hour) + i hours. All rows are persisted in one batch.
func (s *Service) Forecast(ctx context.Context, stationID uuid.UUID, start, end time.Time, factorsPerHour []DemandFactors) ([]*DemandForecast, error) {
	if !end.After(start) {
		return nil, common.NewValidationError("end time must be after start time")
	}
	for i, f := range factorsPerHour {
		if err := validation.ValidateStruct(f); err != nil {
			return nil, common.NewValidationError(fmt.Sprintf("factors[%d]: %s", i, validationMessage(err)))
		}
	}
	if len(factorsPerHour) == 0 {
		return []*DemandForecast{}, nil
	}

	events, err := s.repo.GetStationActivity(ctx, stationID, start, end)
	if err != nil {
		return nil, err
	}

	baseDemand := BaseDemand(events)
	historyCount := len(events)

	firstHour := start.Truncate(time.Hour)
	createdAt := s.now()
	forecasts := make([]*DemandForecast, 0, len(factorsPerHour))
	totalDemand := 0

	for i, factors := range factorsPerHour {
		predicted := PredictDemand(baseDemand, factors)
		totalDemand += predicted
		forecasts = append(forecasts, &DemandForecast{
			ID:              uuid.New(),
			StationID:       stationID,
			Timestamp:       firstHour.Add(time.Duration(i) * time.Hour),
			PredictedDemand: predicted,
			Confidence:      Confidence(historyCount, factors),
			Factors:         factors,
			CreatedAt:       createdAt,
		})
	}

	if err := s.repo.SaveForecasts(ctx, forecasts); err != nil {
		return nil, err
	}
	forecastsGenerated.Add(float64(len(forecasts)))

	logger.InfoContext(ctx, "demand forecast generated",
		zap.String("station_id", stationID.String()),
		zap.Int("hours", len(forecasts)),
		zap.Float64("base_demand", baseDemand),
		zap.Int("history_count", historyCount),
	)

	s.publishEvent(ctx, eventbus.SubjectForecastsGenerated, eventbus.ForecastsGeneratedData{
		StationID:   stationID,
		Hours:       len(forecasts),
		FirstHour:   firstHour,
		TotalDemand: totalDemand,
		GeneratedAt: createdAt,
	})

	return forecasts, nil
}

func validationMessage(err error) string {
	if appErr, ok := common.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// GetLatestForecast returns the newest forecast for a station, or nil.
func (s *Service) GetLatestForecast(ctx context.Context, stationID uuid.UUID) (*DemandForecast, error) {
	return s.repo.GetLatestForecast(ctx, stationID)
}

// BaseDemand is the mean number of events per occupied hour bucket, 0 with
// no history.
func BaseDemand(events []time.Time) float64 {
	if len(events) == 0 {
		return 0
	}

	buckets := make(map[time.Time]float64)
	var order []time.Time
	for _, ts := range events {
		hour := ts.Truncate(time.Hour)
		if _, ok := buckets[hour]; !ok {
			order = append(order, hour)
		}
		buckets[hour]++
	}

	counts := make([]float64, 0, len(order))
	for _, hour := range order {
		counts = append(counts, buckets[hour])
	}
	return stat.Mean(counts, nil)
}

// PredictDemand applies the contextual multipliers to baseDemand in a fixed
// order and rounds the result to a non-negative integer.
func PredictDemand(baseDemand float64, f DemandFactors) int {
	adjusted := baseDemand
	adjusted *= timeOfDayMultiplier(f.TimeOfDay)
	adjusted *= weekendMultiplier(f.DayOfWeek)
	adjusted *= weatherMultiplier(f.WeatherCondition)
	adjusted *= temperatureMultiplier(f.Temperature)
	adjusted *= precipitationMultiplier(f.Precipitation)
	adjusted *= eventsMultiplier(f.NearbyEvents)
	adjusted *= holidayMultiplier(f.IsHoliday)

	predicted := int(math.Round(adjusted))
	if predicted < 0 {
		return 0
	}
	return predicted
}

// Confidence grows with history volume up to 0.9 and is reduced by
// unpredictable conditions, never dropping below 0.3.
func Confidence(historyCount int, f DemandFactors) float64 {
	confidence := math.Min(maxConfidence, float64(historyCount)/historySaturation)

	if f.WeatherCondition == WeatherSnow || f.Precipitation > 0.5 {
		confidence *= 0.8
	}
	if f.Temperature < 0 || f.Temperature > 35 {
		confidence *= 0.9
	}
	if isNight(f.TimeOfDay) {
		confidence *= 0.9
	}

	return math.Max(minConfidence, confidence)
}

func timeOfDayMultiplier(hour int) float64 {
	switch {
	case hour >= 7 && hour <= 9:
		return 1.5
	case hour >= 16 && hour <= 18:
		return 1.4
	case isNight(hour):
		return 0.3
	default:
		return 1.0
	}
}

func isNight(hour int) bool {
	return hour >= 23 || hour <= 4
}

func weekendMultiplier(dayOfWeek int) float64 {
	if dayOfWeek == 0 || dayOfWeek == 6 {
		return 0.7
	}
	return 1.0
}

func weatherMultiplier(condition WeatherCondition) float64 {
	switch condition {
	case WeatherRain:
		return 0.6
	case WeatherSnow:
		return 0.3
	default:
		return 1.0
	}
}

func temperatureMultiplier(celsius float64) float64 {
	switch {
	case celsius < 5:
		return 0.5
	case celsius > 30:
		return 0.7
	default:
		return 1.0
	}
}

func precipitationMultiplier(precipitation float64) float64 {
	if precipitation <= 0 {
		return 1.0
	}
	return math.Max(0.3, 1-precipitation*0.2)
}

func eventsMultiplier(nearbyEvents int) float64 {
	return 1 + float64(nearbyEvents)*0.1
}

func holidayMultiplier(isHoliday bool) float64 {
	if isHoliday {
		return 0.6
	}
	return 1.0
}

// ========================================
// RECONCILIATION
// ========================================

// UpdateAccuracy records the observed demand for the forecast covering
// timestamp's hour.
func (s *Service) UpdateAccuracy(ctx context.Context, stationID uuid.UUID, timestamp time.Time, actualDemand int) (*DemandForecast, error) {
	if actualDemand < 0 {
		return nil, common.NewValidationError("actual demand cannot be negative")
	}

	f, err := s.repo.GetForecastForHour(ctx, stationID, timestamp.Truncate(time.Hour))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("forecast not found", err)
		}
		return nil, err
	}

	accuracy := Accuracy(actualDemand, f.PredictedDemand)
	if err := s.repo.SetActualDemand(ctx, f.ID, actualDemand, accuracy); err != nil {
		return nil, err
	}

	f.ActualDemand = &actualDemand
	f.Accuracy = &accuracy
	return f, nil
}

// Accuracy is 1 - |actual-predicted|/actual clamped at 0. With no actual
// demand it is 1 for a zero prediction and 0 otherwise.
func Accuracy(actual, predicted int) float64 {
	if actual == 0 {
		if predicted == 0 {
			return 1.0
		}
		return 0
	}
	diff := math.Abs(float64(actual - predicted))
	return math.Max(0, 1-diff/float64(actual))
}

// ReconcilePending fills in actual demand for every forecast hour that has
// ended before now, counting the station's recorded activity in that hour.
// It returns the number of forecasts reconciled.
func (s *Service) ReconcilePending(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.repo.GetUnreconciledForecasts(ctx, now, reconcileBatchSize)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, f := range pending {
		actual, err := s.repo.CountStationActivity(ctx, f.StationID, f.Timestamp, f.Timestamp.Add(time.Hour))
		if err != nil {
			return reconciled, err
		}
		if err := s.repo.SetActualDemand(ctx, f.ID, actual, Accuracy(actual, f.PredictedDemand)); err != nil {
			return reconciled, err
		}
		reconciled++
	}

	if reconciled > 0 {
		logger.InfoContext(ctx, "forecasts reconciled", zap.Int("count", reconciled))
	}
	return reconciled, nil
}

// ForecastMetrics aggregates accuracy over reconciled forecasts in range.
// It returns nil when no reconciled forecast exists.
func (s *Service) ForecastMetrics(ctx context.Context, stationID uuid.UUID, start, end time.Time) (*ForecastMetrics, error) {
	if end.Before(start) {
		return nil, common.NewValidationError("end time must not be before start time")
	}

	forecasts, err := s.repo.GetReconciledForecasts(ctx, stationID, start, end)
	if err != nil {
		return nil, err
	}

	accuracies := make([]float64, 0, len(forecasts))
	var percentageErrors []float64
	for _, f := range forecasts {
		if !f.Reconciled() {
			continue
		}
		accuracies = append(accuracies, *f.Accuracy)
		if actual := *f.ActualDemand; actual > 0 {
			percentageErrors = append(percentageErrors,
				math.Abs(float64(actual-f.PredictedDemand))/float64(actual)*100)
		}
	}

	if len(accuracies) == 0 {
		return nil, nil
	}

	metrics := &ForecastMetrics{
		StationID:       stationID,
		TotalForecasts:  len(accuracies),
		AverageAccuracy: stat.Mean(accuracies, nil),
		Range:           TimeRange{Start: start, End: end},
	}
	if len(percentageErrors) > 0 {
		metrics.MAPE = stat.Mean(percentageErrors, nil)
	}
	return metrics, nil
}
