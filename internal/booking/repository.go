package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository handles booking data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new booking repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const bookingColumns = `
	id, user_id, vehicle_id, type, start_time, end_time, status, price,
	recurring_pattern, created_at, updated_at`

const insertBookingQuery = `
	INSERT INTO bookings (
		id, user_id, vehicle_id, type, start_time, end_time, status, price,
		recurring_pattern, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// ========================================
// POLICY
// ========================================

// GetActivePolicy returns the active booking policy or pgx.ErrNoRows.
// Money columns are read as text and parsed as decimals.
func (r *Repository) GetActivePolicy(ctx context.Context) (*Policy, error) {
	query := `
		SELECT id, name, min_duration, max_duration,
		       price_per_minute::text, price_per_hour::text, price_per_day::text,
		       late_fee::text, cancellation_fee::text, is_active
		FROM booking_policies
		WHERE is_active = true
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var (
		p                          Policy
		perMinute, perHour, perDay string
		lateFee, cancellationFee   string
	)
	err := r.db.QueryRow(ctx, query).Scan(
		&p.ID, &p.Name, &p.MinDuration, &p.MaxDuration,
		&perMinute, &perHour, &perDay, &lateFee, &cancellationFee, &p.IsActive,
	)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"price_per_minute", perMinute, &p.PricePerMinute},
		{"price_per_hour", perHour, &p.PricePerHour},
		{"price_per_day", perDay, &p.PricePerDay},
		{"late_fee", lateFee, &p.LateFee},
		{"cancellation_fee", cancellationFee, &p.CancellationFee},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("parse policy %s: %w", f.name, err)
		}
		*f.dst = d
	}

	return &p, nil
}

// ========================================
// BOOKINGS
// ========================================

// GetBookingByID returns a booking or pgx.ErrNoRows
func (r *Repository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.db.QueryRow(ctx, query, id))
}

// GetOccupyingBookings returns the vehicle's active bookings overlapping [from, to)
func (r *Repository) GetOccupyingBookings(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]*Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE vehicle_id = $1 AND status IN ($2, $3)
		  AND start_time < $5 AND end_time > $4
		ORDER BY start_time
	`

	rows, err := r.db.Query(ctx, query, vehicleID, StatusPending, StatusConfirmed, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

// CreateBookingsAtomic re-checks every window and inserts the bookings in
// one serializable transaction holding a vehicle advisory lock.
func (r *Repository) CreateBookingsAtomic(ctx context.Context, vehicleID uuid.UUID, bookings []*Booking) (bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, vehicleID.String()); err != nil {
		return false, fmt.Errorf("lock vehicle: %w", err)
	}

	for _, b := range bookings {
		var taken bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE vehicle_id = $1 AND status IN ($2, $3)
				  AND start_time < $5 AND end_time > $4
			)`,
			vehicleID, StatusPending, StatusConfirmed, b.StartTime, b.EndTime,
		).Scan(&taken)
		if err != nil {
			return false, fmt.Errorf("check overlap: %w", err)
		}
		if taken {
			return false, nil
		}
	}

	if err := sendInserts(ctx, tx, bookings); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}

// InsertBookings inserts bookings as one batch
func (r *Repository) InsertBookings(ctx context.Context, bookings []*Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := sendInserts(ctx, tx, bookings); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CancelBooking moves an occupying booking to CANCELLED
func (r *Repository) CancelBooking(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status IN ($4, $5)`,
		id, StatusCancelled, at, StatusPending, StatusConfirmed,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func sendInserts(ctx context.Context, tx pgx.Tx, bookings []*Booking) error {
	batch := &pgx.Batch{}
	for _, b := range bookings {
		batch.Queue(insertBookingQuery,
			b.ID, b.UserID, b.VehicleID, b.Type, b.StartTime, b.EndTime,
			b.Status, b.Price, b.RecurringPattern, b.CreatedAt, b.UpdatedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range bookings {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert booking: %w", err)
		}
	}
	return br.Close()
}

func scanBooking(row pgx.Row) (*Booking, error) {
	b := &Booking{}
	err := row.Scan(
		&b.ID, &b.UserID, &b.VehicleID, &b.Type, &b.StartTime, &b.EndTime,
		&b.Status, &b.Price, &b.RecurringPattern, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}
