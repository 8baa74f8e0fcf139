package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryInterface defines the interface for booking data access.
type RepositoryInterface interface {
	GetActivePolicy(ctx context.Context) (*Policy, error)
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// GetOccupyingBookings returns PENDING and CONFIRMED bookings of the
	// vehicle that overlap [from, to).
	GetOccupyingBookings(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]*Booking, error)

	// CreateBookingsAtomic inserts bookings for one vehicle after re-checking
	// overlaps under a per-vehicle lock. Returns false when a window is taken.
	CreateBookingsAtomic(ctx context.Context, vehicleID uuid.UUID, bookings []*Booking) (bool, error)

	InsertBookings(ctx context.Context, bookings []*Booking) error

	// CancelBooking cancels an occupying booking. Returns false if the
	// booking was no longer PENDING or CONFIRMED.
	CancelBooking(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

var _ RepositoryInterface = (*Repository)(nil)
