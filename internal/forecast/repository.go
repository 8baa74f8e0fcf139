package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles forecast data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new forecast repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const forecastColumns = `
	id, station_id, timestamp, predicted_demand, confidence, factors,
	actual_demand, accuracy, created_at`

// ========================================
// STATION ACTIVITY
// ========================================

// GetStationActivity returns the occurrence time of every pickup (rental
// start) and dropoff (rental end) at the station within [start, end].
func (r *Repository) GetStationActivity(ctx context.Context, stationID uuid.UUID, start, end time.Time) ([]time.Time, error) {
	query := `
		SELECT start_time AS occurred_at FROM rentals
		WHERE start_station_id = $1 AND start_time >= $2 AND start_time <= $3
		UNION ALL
		SELECT end_time AS occurred_at FROM rentals
		WHERE end_station_id = $1 AND end_time IS NOT NULL AND end_time >= $2 AND end_time <= $3
		ORDER BY occurred_at
	`

	rows, err := r.db.Query(ctx, query, stationID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		events = append(events, ts)
	}

	return events, rows.Err()
}

// CountStationActivity counts pickups and dropoffs in [start, end).
func (r *Repository) CountStationActivity(ctx context.Context, stationID uuid.UUID, start, end time.Time) (int, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM rentals
			 WHERE start_station_id = $1 AND start_time >= $2 AND start_time < $3)
			+
			(SELECT COUNT(*) FROM rentals
			 WHERE end_station_id = $1 AND end_time >= $2 AND end_time < $3)
	`

	var count int
	err := r.db.QueryRow(ctx, query, stationID, start, end).Scan(&count)
	return count, err
}

// ========================================
// FORECASTS
// ========================================

// SaveForecasts upserts all forecasts in a single batch
func (r *Repository) SaveForecasts(ctx context.Context, forecasts []*DemandForecast) error {
	if len(forecasts) == 0 {
		return nil
	}

	query := `
		INSERT INTO demand_forecasts (
			id, station_id, timestamp, predicted_demand, confidence, factors, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (station_id, timestamp) DO UPDATE SET
			predicted_demand = EXCLUDED.predicted_demand,
			confidence = EXCLUDED.confidence,
			factors = EXCLUDED.factors
	`

	batch := &pgx.Batch{}
	for _, f := range forecasts {
		factorsJSON, err := json.Marshal(f.Factors)
		if err != nil {
			return fmt.Errorf("marshal factors: %w", err)
		}
		batch.Queue(query, f.ID, f.StationID, f.Timestamp, f.PredictedDemand, f.Confidence, factorsJSON, f.CreatedAt)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for range forecasts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetForecastForHour returns the forecast for the given hour or pgx.ErrNoRows
func (r *Repository) GetForecastForHour(ctx context.Context, stationID uuid.UUID, hour time.Time) (*DemandForecast, error) {
	query := `SELECT ` + forecastColumns + `
		FROM demand_forecasts
		WHERE station_id = $1 AND timestamp = $2
	`

	return scanForecast(r.db.QueryRow(ctx, query, stationID, hour))
}

// GetLatestForecast returns the most recent forecast, or nil if none exists
func (r *Repository) GetLatestForecast(ctx context.Context, stationID uuid.UUID) (*DemandForecast, error) {
	query := `SELECT ` + forecastColumns + `
		FROM demand_forecasts
		WHERE station_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	f, err := scanForecast(r.db.QueryRow(ctx, query, stationID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return f, err
}

// GetReconciledForecasts returns forecasts with actual demand and accuracy set
func (r *Repository) GetReconciledForecasts(ctx context.Context, stationID uuid.UUID, start, end time.Time) ([]*DemandForecast, error) {
	query := `SELECT ` + forecastColumns + `
		FROM demand_forecasts
		WHERE station_id = $1 AND timestamp >= $2 AND timestamp <= $3
		  AND actual_demand IS NOT NULL AND accuracy IS NOT NULL
		ORDER BY timestamp
	`

	return r.queryForecasts(ctx, query, stationID, start, end)
}

// GetUnreconciledForecasts returns forecasts whose hour ended before the cutoff
// and that have no actual demand yet, oldest first
func (r *Repository) GetUnreconciledForecasts(ctx context.Context, endedBefore time.Time, limit int) ([]*DemandForecast, error) {
	query := `SELECT ` + forecastColumns + `
		FROM demand_forecasts
		WHERE actual_demand IS NULL AND timestamp + INTERVAL '1 hour' <= $1
		ORDER BY timestamp
		LIMIT $2
	`

	return r.queryForecasts(ctx, query, endedBefore, limit)
}

// SetActualDemand records the reconciliation result
func (r *Repository) SetActualDemand(ctx context.Context, forecastID uuid.UUID, actualDemand int, accuracy float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE demand_forecasts
		SET actual_demand = $2, accuracy = $3
		WHERE id = $1`,
		forecastID, actualDemand, accuracy,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) queryForecasts(ctx context.Context, query string, args ...interface{}) ([]*DemandForecast, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forecasts []*DemandForecast
	for rows.Next() {
		f, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		forecasts = append(forecasts, f)
	}

	return forecasts, rows.Err()
}

func scanForecast(row pgx.Row) (*DemandForecast, error) {
	f := &DemandForecast{}
	var factorsJSON []byte
	err := row.Scan(
		&f.ID, &f.StationID, &f.Timestamp, &f.PredictedDemand, &f.Confidence, &factorsJSON,
		&f.ActualDemand, &f.Accuracy, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(factorsJSON) > 0 {
		if err := json.Unmarshal(factorsJSON, &f.Factors); err != nil {
			return nil, fmt.Errorf("unmarshal factors: %w", err)
		}
	}
	return f, nil
}
