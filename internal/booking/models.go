package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the booking product
type Type string

const (
	TypeStandard Type = "STANDARD"
	TypePremium  Type = "PREMIUM"
	TypeGroup    Type = "GROUP"
	TypeBusiness Type = "BUSINESS"
)

// Status is the booking lifecycle state
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Occupies reports whether a booking in this status blocks its vehicle.
func (s Status) Occupies() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Booking reserves a vehicle for [StartTime, EndTime). Price is in minor
// currency units.
type Booking struct {
	ID               uuid.UUID `json:"id" db:"id"`
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	VehicleID        uuid.UUID `json:"vehicle_id" db:"vehicle_id"`
	Type             Type      `json:"type" db:"type"`
	StartTime        time.Time `json:"start_time" db:"start_time"`
	EndTime          time.Time `json:"end_time" db:"end_time"`
	Status           Status    `json:"status" db:"status"`
	Price            int64     `json:"price" db:"price"`
	RecurringPattern *string   `json:"recurring_pattern,omitempty" db:"recurring_pattern"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Policy holds the duration bounds and rates for bookings. Durations are
// minutes; money is in minor currency units.
type Policy struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	MinDuration     int             `json:"min_duration" db:"min_duration"`
	MaxDuration     int             `json:"max_duration" db:"max_duration"`
	PricePerMinute  decimal.Decimal `json:"price_per_minute" db:"price_per_minute"`
	PricePerHour    decimal.Decimal `json:"price_per_hour" db:"price_per_hour"`
	PricePerDay     decimal.Decimal `json:"price_per_day" db:"price_per_day"`
	LateFee         decimal.Decimal `json:"late_fee" db:"late_fee"`
	CancellationFee decimal.Decimal `json:"cancellation_fee" db:"cancellation_fee"`
	IsActive        bool            `json:"is_active" db:"is_active"`
}

// DurationValidation is the soft result of a duration check
type DurationValidation struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

// Window is a half-open time interval [Start, End)
type Window struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// Overlaps reports whether two half-open windows share any instant.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && w.End.After(o.Start)
}

// ========================================
// REQUESTS / RESPONSES
// ========================================

// ValidateBookingRequest asks for a duration check and a price quote
type ValidateBookingRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Type      Type      `json:"type" validate:"omitempty,booking_type"`
}

// Quote is the validation result and price for a proposed booking
type Quote struct {
	Validation DurationValidation `json:"validation"`
	Price      int64              `json:"price"`
	Type       Type               `json:"type"`
}

// ConflictRequest asks whether a vehicle is free for a window
type ConflictRequest struct {
	VehicleID        uuid.UUID `json:"vehicle_id" binding:"required"`
	StartTime        time.Time `json:"start_time" binding:"required"`
	EndTime          time.Time `json:"end_time" binding:"required"`
	RecurringPattern *string   `json:"recurring_pattern,omitempty"`
}

// ConflictResponse reports the conflict check result
type ConflictResponse struct {
	HasConflict bool `json:"has_conflict"`
	Occurrences int  `json:"occurrences"`
}

// CreateBookingRequest represents a request to book a vehicle
type CreateBookingRequest struct {
	UserID           uuid.UUID `json:"user_id" binding:"required"`
	VehicleID        uuid.UUID `json:"vehicle_id" binding:"required"`
	Type             Type      `json:"type" validate:"omitempty,booking_type"`
	StartTime        time.Time `json:"start_time" binding:"required"`
	EndTime          time.Time `json:"end_time" binding:"required"`
	RecurringPattern *string   `json:"recurring_pattern,omitempty"`
}

// CreateBookingResponse is the created booking and its generated recurrences
type CreateBookingResponse struct {
	Booking     *Booking   `json:"booking"`
	Recurrences []*Booking `json:"recurrences"`
}

// CancelBookingResponse is a cancelled booking and the fee charged
type CancelBookingResponse struct {
	Booking         *Booking `json:"booking"`
	CancellationFee int64    `json:"cancellation_fee"`
}
