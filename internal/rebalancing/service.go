package rebalancing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/fleet-engine/internal/stations"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/richxcame/fleet-engine/pkg/eventbus"
	"github.com/richxcame/fleet-engine/pkg/logger"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// DefaultVehicleCapacity is used when a route request carries no capacity
const DefaultVehicleCapacity = 20

// ErrTaskNotFound is wrapped by the NotFound AppError for unknown tasks
var ErrTaskNotFound = errors.New("rebalancing task not found")

// Service manages rebalancing tasks and builds routes for them
type Service struct {
	repo            RepositoryInterface
	stations        StationService
	eventBus        eventbus.Publisher
	defaultCapacity int
	now             func() time.Time
}

// NewService creates a new rebalancing service
func NewService(repo RepositoryInterface, stationService StationService) *Service {
	return &Service{
		repo:            repo,
		stations:        stationService,
		defaultCapacity: DefaultVehicleCapacity,
		now:             time.Now,
	}
}

// SetEventBus sets the event bus for publishing task and route events
func (s *Service) SetEventBus(bus eventbus.Publisher) {
	s.eventBus = bus
}

// SetDefaultCapacity overrides the vehicle capacity used when none is given
func (s *Service) SetDefaultCapacity(capacity int) {
	if capacity > 0 {
		s.defaultCapacity = capacity
	}
}

func (s *Service) publishEvent(ctx context.Context, subject string, data interface{}) {
	if s.eventBus == nil {
		return
	}
	correlationID := logger.CorrelationIDFromContext(ctx)
	go func() {
		evt, err := eventbus.NewEvent(subject, "rebalancing-service", data)
		if err != nil {
			logger.Warn("failed to create rebalancing event", zap.String("subject", subject), zap.Error(err))
			return
		}
		evt.CorrelationID = correlationID
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.eventBus.Publish(pubCtx, subject, evt); err != nil {
			logger.Warn("failed to publish rebalancing event", zap.String("subject", subject), zap.Error(err))
		}
	}()
}

func (s *Service) publishTaskEvent(ctx context.Context, subject string, task *Task) {
	s.publishEvent(ctx, subject, eventbus.TaskEventData{
		TaskID:        task.ID,
		StationID:     task.StationID,
		RequiredCount: task.RequiredCount,
		CurrentCount:  task.CurrentCount,
		Priority:      string(task.Priority),
		Status:        string(task.Status),
		OccurredAt:    task.UpdatedAt,
	})
}

// ========================================
// TASK LIFECYCLE
// ========================================

// CreateTask creates a PENDING task with no progress
func (s *Service) CreateTask(ctx context.Context, stationID uuid.UUID, requiredCount int, priority stations.Priority, notes *string) (*Task, error) {
	if requiredCount == 0 {
		return nil, common.NewValidationError("required count must be non-zero")
	}
	if !priority.Valid() {
		return nil, common.NewValidationError("invalid priority: " + string(priority))
	}
	if _, err := s.stations.GetStation(ctx, stationID); err != nil {
		return nil, err
	}

	now := s.now()
	task := &Task{
		ID:            uuid.New(),
		StationID:     stationID,
		RequiredCount: requiredCount,
		CurrentCount:  0,
		Priority:      priority,
		Status:        StatusPending,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "rebalancing task created",
		zap.String("task_id", task.ID.String()),
		zap.String("station_id", stationID.String()),
		zap.Int("required_count", requiredCount),
		zap.String("priority", string(priority)),
	)

	s.publishTaskEvent(ctx, eventbus.SubjectTaskCreated, task)
	return task, nil
}

// GetTask returns a task or a NotFound error
func (s *Service) GetTask(ctx context.Context, taskID uuid.UUID) (*Task, error) {
	task, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("rebalancing task not found", ErrTaskNotFound)
		}
		return nil, err
	}
	return task, nil
}

// UpdateTask applies a partial update. Terminal tasks keep their status.
// Completing a task applies its progress to the station count in the same
// transaction, so a failed completion leaves both untouched and can be retried.
func (s *Service) UpdateTask(ctx context.Context, taskID uuid.UUID, update TaskUpdate) (*Task, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	previous := task.Status

	if update.Status != nil && *update.Status != task.Status {
		next := *update.Status
		if !next.Valid() {
			return nil, common.NewValidationError("invalid status: " + string(next))
		}
		if task.Status.Terminal() {
			return nil, common.NewConflictError("task is already " + string(task.Status))
		}
		task.Status = next
	}
	if update.CurrentCount != nil {
		if *update.CurrentCount < 0 {
			return nil, common.NewValidationError("current count cannot be negative")
		}
		task.CurrentCount = *update.CurrentCount
	}
	if update.Notes != nil {
		task.Notes = update.Notes
	}
	if update.CompletedAt != nil {
		task.CompletedAt = update.CompletedAt
	}

	if task.Status == StatusInProgress && task.StartTime == nil {
		task.StartTime = &now
	}
	completing := task.Status == StatusCompleted && previous != StatusCompleted
	if completing && task.CompletedAt == nil {
		task.CompletedAt = &now
	}
	task.UpdatedAt = now

	delta := 0
	if completing {
		delta = task.StationDelta()
	}

	if err := s.repo.UpdateTask(ctx, task, previous, delta); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, common.NewNotFoundError("rebalancing task not found", ErrTaskNotFound)
		case errors.Is(err, ErrTaskStateChanged):
			return nil, common.NewConflictError("task was modified concurrently, reload and retry")
		}
		if completing {
			logger.ErrorContext(ctx, "failed to complete rebalancing task",
				zap.String("task_id", task.ID.String()),
				zap.Int("delta", delta),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if completing {
		logger.InfoContext(ctx, "rebalancing task completed",
			zap.String("task_id", task.ID.String()),
			zap.Int("current_count", task.CurrentCount),
		)
		s.publishTaskEvent(ctx, eventbus.SubjectTaskCompleted, task)
	} else {
		s.publishTaskEvent(ctx, eventbus.SubjectTaskUpdated, task)
	}

	return task, nil
}

// ========================================
// METRICS
// ========================================

// Metrics summarizes tasks, optionally for a single zone
func (s *Service) Metrics(ctx context.Context, zoneID *string) (*Metrics, error) {
	tasks, err := s.repo.ListTasks(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	m := ComputeMetrics(tasks)
	return &m, nil
}

// ComputeMetrics aggregates task counts and completion times
func ComputeMetrics(tasks []*Task) Metrics {
	m := Metrics{TotalTasks: len(tasks)}

	var durations []float64
	for _, t := range tasks {
		if t.Status == StatusCompleted {
			m.CompletedTasks++
			if t.StartTime != nil && t.CompletedAt != nil {
				durations = append(durations, t.CompletedAt.Sub(*t.StartTime).Minutes())
			}
		} else if t.Priority == stations.PriorityCritical {
			m.CriticalTasks++
		}
	}

	if m.TotalTasks > 0 {
		m.CompletionRate = float64(m.CompletedTasks) / float64(m.TotalTasks) * 100
	}
	if len(durations) > 0 {
		avg := stat.Mean(durations, nil)
		m.AverageCompletionTimeMinutes = &avg
	}
	return m
}

// ========================================
// SYNC
// ========================================

// SyncStationTask evaluates a station and opens a task if it is out of
// balance and has no open task. Returns nil when nothing was created.
func (s *Service) SyncStationTask(ctx context.Context, stationID uuid.UUID) (*Task, error) {
	eval, err := s.stations.EvaluateStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return s.syncEvaluation(ctx, eval)
}

// SyncAll runs SyncStationTask over every station and returns the number of
// tasks created.
func (s *Service) SyncAll(ctx context.Context) (int, error) {
	evals, err := s.stations.EvaluateAll(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, eval := range evals {
		task, err := s.syncEvaluation(ctx, eval)
		if err != nil {
			return created, err
		}
		if task != nil {
			created++
		}
	}
	return created, nil
}

func (s *Service) syncEvaluation(ctx context.Context, eval *stations.BalanceEvaluation) (*Task, error) {
	required := eval.CorrectionCount()
	if required == 0 {
		return nil, nil
	}

	open, err := s.repo.HasOpenTask(ctx, eval.StationID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, nil
	}

	notes := "opened by rebalancing sweep"
	return s.CreateTask(ctx, eval.StationID, required, eval.Priority, &notes)
}
