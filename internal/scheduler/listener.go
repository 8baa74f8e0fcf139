package scheduler

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/fleet-engine/internal/rebalancing"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/richxcame/fleet-engine/pkg/eventbus"
)

// ForecastConsumer is the durable consumer name for forecast sync.
const ForecastConsumer = "fleet-engine-forecast-sync"

// StationSyncer opens a rebalancing task for a single station when needed
type StationSyncer interface {
	SyncStationTask(ctx context.Context, stationID uuid.UUID) (*rebalancing.Task, error)
}

var _ StationSyncer = (*rebalancing.Service)(nil)

// ForecastListener re-evaluates a station as soon as a new forecast for it
// is stored, instead of waiting for the next sweep.
type ForecastListener struct {
	syncer StationSyncer
	logger *zap.Logger
}

// NewForecastListener creates a listener that syncs tasks through syncer
func NewForecastListener(syncer StationSyncer, logger *zap.Logger) *ForecastListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForecastListener{syncer: syncer, logger: logger}
}

// Start registers the listener on forecasts.generated.
func (l *ForecastListener) Start(ctx context.Context, sub eventbus.Subscriber) error {
	return sub.Subscribe(ctx, eventbus.SubjectForecastsGenerated, ForecastConsumer, l.Handle)
}

// Handle processes one forecasts.generated event. Undecodable payloads and
// stations that no longer exist are dropped; other failures are returned so
// the message is redelivered.
func (l *ForecastListener) Handle(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.ForecastsGeneratedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		l.logger.Warn("ignoring forecast event with bad payload",
			zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}
	if data.StationID == uuid.Nil {
		l.logger.Warn("ignoring forecast event without station", zap.String("event_id", event.ID))
		return nil
	}

	task, err := l.syncer.SyncStationTask(ctx, data.StationID)
	if err != nil {
		if common.IsNotFound(err) {
			l.logger.Info("station from forecast event no longer exists",
				zap.String("station_id", data.StationID.String()))
			return nil
		}
		return err
	}

	if task != nil {
		l.logger.Info("rebalancing task opened after forecast",
			zap.String("station_id", data.StationID.String()),
			zap.String("task_id", task.ID.String()),
			zap.Int("required_count", task.RequiredCount),
			zap.String("correlation_id", event.CorrelationID),
		)
	}
	return nil
}
