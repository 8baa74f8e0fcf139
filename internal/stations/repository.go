package stations

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles station data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new station repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const stationColumns = `
	id, name, latitude, longitude, current_count, min_threshold, max_threshold,
	zone_id, created_at, updated_at`

// GetStationByID returns the station or pgx.ErrNoRows
func (r *Repository) GetStationByID(ctx context.Context, id uuid.UUID) (*Station, error) {
	query := `SELECT ` + stationColumns + ` FROM stations WHERE id = $1`
	return scanStation(r.db.QueryRow(ctx, query, id))
}

// GetStationsByZone returns every station in a zone
func (r *Repository) GetStationsByZone(ctx context.Context, zoneID string) ([]*Station, error) {
	query := `SELECT ` + stationColumns + ` FROM stations WHERE zone_id = $1 ORDER BY id`
	return r.queryStations(ctx, query, zoneID)
}

// ListStations returns every station
func (r *Repository) ListStations(ctx context.Context) ([]*Station, error) {
	query := `SELECT ` + stationColumns + ` FROM stations ORDER BY zone_id, id`
	return r.queryStations(ctx, query)
}

// AdjustCount adds delta to the station's vehicle count, never going below
// zero, and returns the new count
func (r *Repository) AdjustCount(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		UPDATE stations
		SET current_count = GREATEST(0, current_count + $2), updated_at = NOW()
		WHERE id = $1
		RETURNING current_count`,
		id, delta,
	).Scan(&count)
	return count, err
}

func (r *Repository) queryStations(ctx context.Context, query string, args ...interface{}) ([]*Station, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []*Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

func scanStation(row pgx.Row) (*Station, error) {
	s := &Station{}
	err := row.Scan(
		&s.ID, &s.Name, &s.Location.Latitude, &s.Location.Longitude,
		&s.CurrentCount, &s.MinThreshold, &s.MaxThreshold,
		&s.ZoneID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
