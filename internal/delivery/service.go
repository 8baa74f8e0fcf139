package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/richxcame/fleet-engine/pkg/eventbus"
	"github.com/richxcame/fleet-engine/pkg/logger"
	"github.com/richxcame/fleet-engine/pkg/validation"
	"go.uber.org/zap"
)

var stopsRouted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fleet_delivery_stops_routed_total",
	Help: "Total number of delivery stops assigned to routes",
})

// Service builds multi-stop delivery routes
type Service struct {
	eventBus  eventbus.Publisher
	newRandom RandomFactory
	now       func() time.Time
}

// NewService creates a new delivery route service
func NewService() *Service {
	return &Service{
		newRandom: defaultRandomFactory,
		now:       time.Now,
	}
}

// SetEventBus sets the event bus for publishing optimization events
func (s *Service) SetEventBus(bus eventbus.Publisher) {
	s.eventBus = bus
}

// SetRandomFactory replaces the source of sampled traffic and utilization
func (s *Service) SetRandomFactory(f RandomFactory) {
	if f != nil {
		s.newRandom = f
	}
}

func (s *Service) publishEvent(ctx context.Context, subject string, data interface{}) {
	if s.eventBus == nil {
		return
	}
	correlationID := logger.CorrelationIDFromContext(ctx)
	go func() {
		evt, err := eventbus.NewEvent(subject, "delivery-service", data)
		if err != nil {
			logger.Warn("failed to create delivery event", zap.String("subject", subject), zap.Error(err))
			return
		}
		evt.CorrelationID = correlationID
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.eventBus.Publish(pubCtx, subject, evt); err != nil {
			logger.Warn("failed to publish delivery event", zap.String("subject", subject), zap.Error(err))
		}
	}()
}

// BuildRoutes assigns stops to vehicles and schedules each route from date
func (s *Service) BuildRoutes(ctx context.Context, vehicles []Vehicle, stops []Stop, date time.Time) (*OptimizationResult, error) {
	if err := validateInput(vehicles, stops); err != nil {
		return nil, err
	}

	routes := Plan(vehicles, stops, date, s.newRandom())
	result := &OptimizationResult{
		Routes:      routes,
		Summary:     Summarize(routes),
		Status:      StatusSuccess,
		OptimizedAt: s.now(),
	}
	if len(stops) == 0 {
		result.Status = StatusEmpty
	}

	stopsRouted.Add(float64(result.Summary.TotalStops))

	logger.InfoContext(ctx, "delivery routes optimized",
		zap.Int("vehicles", len(vehicles)),
		zap.Int("stops", len(stops)),
		zap.Int("routes", len(routes)),
		zap.Float64("total_distance_m", result.Summary.TotalDistance),
	)

	s.publishEvent(ctx, eventbus.SubjectDeliveryRoutesOptimized, eventbus.DeliveryRoutesOptimizedData{
		Routes:        len(routes),
		TotalStops:    result.Summary.TotalStops,
		TotalDistance: result.Summary.TotalDistance,
		Status:        result.Status,
		OptimizedAt:   result.OptimizedAt,
	})

	return result, nil
}

func validateInput(vehicles []Vehicle, stops []Stop) error {
	if len(vehicles) == 0 {
		return common.NewValidationError("at least one vehicle is required")
	}
	for _, v := range vehicles {
		if v.StartLocation == nil || v.EndLocation == nil {
			return common.NewValidationError(fmt.Sprintf("vehicle %s is missing a start or end location", v.ID))
		}
	}
	for _, st := range stops {
		if err := validation.ValidateCoordinates(st.Location.Latitude, st.Location.Longitude); err != nil {
			return common.NewValidationError(fmt.Sprintf("stop %s: %s", st.ID, err))
		}
		if st.Load < 0 {
			return common.NewValidationError(fmt.Sprintf("stop %s: load cannot be negative", st.ID))
		}
	}
	return nil
}
