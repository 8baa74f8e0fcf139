package rebalancing

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/fleet-engine/internal/stations"
)

// RepositoryInterface defines the interface for rebalancing task data access.
type RepositoryInterface interface {
	CreateTask(ctx context.Context, task *Task) error
	GetTaskByID(ctx context.Context, id uuid.UUID) (*Task, error)

	// UpdateTask persists task only if its stored status is still expected,
	// and applies stationDelta to the task's station atomically with it.
	// Returns ErrTaskStateChanged when the status moved on.
	UpdateTask(ctx context.Context, task *Task, expected Status, stationDelta int) error

	ListTasks(ctx context.Context, zoneID *string) ([]*Task, error)
	HasOpenTask(ctx context.Context, stationID uuid.UUID) (bool, error)

	// GetRoutableTasks returns the tasks with the given ids in the order the
	// ids were given. Unknown ids are skipped.
	GetRoutableTasks(ctx context.Context, ids []uuid.UUID) ([]*RoutableTask, error)

	// ClaimPendingTasks moves the PENDING tasks among ids to IN_PROGRESS in a
	// single statement and returns only the claimed ones, in id order.
	ClaimPendingTasks(ctx context.Context, ids []uuid.UUID) ([]*RoutableTask, error)
}

// StationService is the subset of the station evaluator the task manager needs.
type StationService interface {
	GetStation(ctx context.Context, stationID uuid.UUID) (*stations.Station, error)
	EvaluateStation(ctx context.Context, stationID uuid.UUID) (*stations.BalanceEvaluation, error)
	EvaluateAll(ctx context.Context) ([]*stations.BalanceEvaluation, error)
}

var (
	_ RepositoryInterface = (*Repository)(nil)
	_ StationService      = (*stations.Service)(nil)
)
