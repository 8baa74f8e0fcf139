package rebalancing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles rebalancing task data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new rebalancing repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ErrTaskStateChanged is returned when a task left the status it was read in
// before the update landed
var ErrTaskStateChanged = errors.New("rebalancing task changed concurrently")

const taskColumns = `
	t.id, t.station_id, t.required_count, t.current_count, t.priority, t.status,
	t.start_time, t.completed_at, t.notes, t.created_at, t.updated_at`

// ========================================
// TASKS
// ========================================

// CreateTask inserts a new task
func (r *Repository) CreateTask(ctx context.Context, task *Task) error {
	query := `
		INSERT INTO rebalancing_tasks (
			id, station_id, required_count, current_count, priority, status,
			start_time, completed_at, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		task.ID, task.StationID, task.RequiredCount, task.CurrentCount,
		task.Priority, task.Status, task.StartTime, task.CompletedAt,
		task.Notes, task.CreatedAt, task.UpdatedAt,
	)
	return err
}

// GetTaskByID returns the task or pgx.ErrNoRows
func (r *Repository) GetTaskByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM rebalancing_tasks t WHERE t.id = $1`

	task := &Task{}
	if err := scanTask(r.db.QueryRow(ctx, query, id), task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask writes the mutable fields of a task, provided it is still in
// status expected. A non-zero stationDelta is added to the station count in
// the same transaction, clamped at zero.
func (r *Repository) UpdateTask(ctx context.Context, task *Task, expected Status, stationDelta int) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin task update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE rebalancing_tasks
		SET current_count = $2, status = $3, start_time = $4, completed_at = $5,
		    notes = $6, updated_at = $7
		WHERE id = $1 AND status = $8`,
		task.ID, task.CurrentCount, task.Status, task.StartTime,
		task.CompletedAt, task.Notes, task.UpdatedAt, expected,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM rebalancing_tasks WHERE id = $1)`, task.ID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrTaskStateChanged
	}

	if stationDelta != 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE stations
			SET current_count = GREATEST(0, current_count + $2), updated_at = NOW()
			WHERE id = $1`,
			task.StationID, stationDelta,
		)
		if err != nil {
			return fmt.Errorf("adjust station count: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("adjust station count: station %s missing", task.StationID)
		}
	}

	return tx.Commit(ctx)
}

// ListTasks returns all tasks, optionally restricted to one zone
func (r *Repository) ListTasks(ctx context.Context, zoneID *string) ([]*Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM rebalancing_tasks t
		JOIN stations s ON s.id = t.station_id
		WHERE $1::text IS NULL OR s.zone_id = $1
		ORDER BY t.created_at
	`

	rows, err := r.db.Query(ctx, query, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task := &Task{}
		if err := scanTask(rows, task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// HasOpenTask reports whether the station has a PENDING or IN_PROGRESS task
func (r *Repository) HasOpenTask(ctx context.Context, stationID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rebalancing_tasks
			WHERE station_id = $1 AND status IN ($2, $3)
		)`,
		stationID, StatusPending, StatusInProgress,
	).Scan(&exists)
	return exists, err
}

// ========================================
// ROUTING
// ========================================

// GetRoutableTasks loads tasks with their station location, preserving the
// order of ids
func (r *Repository) GetRoutableTasks(ctx context.Context, ids []uuid.UUID) ([]*RoutableTask, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + taskColumns + `, s.latitude, s.longitude
		FROM rebalancing_tasks t
		JOIN stations s ON s.id = t.station_id
		WHERE t.id = ANY($1)
		ORDER BY array_position($1::uuid[], t.id)
	`

	return r.queryRoutable(ctx, query, ids)
}

// ClaimPendingTasks transitions the PENDING tasks among ids to IN_PROGRESS.
// Tasks claimed concurrently by another caller are not returned.
func (r *Repository) ClaimPendingTasks(ctx context.Context, ids []uuid.UUID) ([]*RoutableTask, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		WITH claimed AS (
			UPDATE rebalancing_tasks
			SET status = $2, start_time = COALESCE(start_time, NOW()), updated_at = NOW()
			WHERE id = ANY($1) AND status = $3
			RETURNING *
		)
		SELECT ` + taskColumns + `, s.latitude, s.longitude
		FROM claimed t
		JOIN stations s ON s.id = t.station_id
		ORDER BY array_position($1::uuid[], t.id)
	`

	return r.queryRoutable(ctx, query, ids, StatusInProgress, StatusPending)
}

func (r *Repository) queryRoutable(ctx context.Context, query string, args ...interface{}) ([]*RoutableTask, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*RoutableTask
	for rows.Next() {
		rt := &RoutableTask{}
		err := rows.Scan(
			&rt.ID, &rt.StationID, &rt.RequiredCount, &rt.CurrentCount,
			&rt.Priority, &rt.Status, &rt.StartTime, &rt.CompletedAt,
			&rt.Notes, &rt.CreatedAt, &rt.UpdatedAt,
			&rt.Location.Latitude, &rt.Location.Longitude,
		)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, rt)
	}

	return tasks, rows.Err()
}

func scanTask(row pgx.Row, task *Task) error {
	return row.Scan(
		&task.ID, &task.StationID, &task.RequiredCount, &task.CurrentCount,
		&task.Priority, &task.Status, &task.StartTime, &task.CompletedAt,
		&task.Notes, &task.CreatedAt, &task.UpdatedAt,
	)
}
