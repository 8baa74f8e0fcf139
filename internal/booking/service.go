package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/richxcame/fleet-engine/pkg/eventbus"
	"github.com/richxcame/fleet-engine/pkg/logger"
	"github.com/richxcame/fleet-engine/pkg/validation"
	"go.uber.org/zap"
)

var (
	// ErrBookingNotFound is wrapped by the NotFound AppError for unknown bookings
	ErrBookingNotFound = errors.New("booking not found")

	// ErrPolicyNotFound is wrapped by the NotFound AppError when no policy is active
	ErrPolicyNotFound = errors.New("no active booking policy")
)

// Service validates, prices and records bookings
type Service struct {
	repo     RepositoryInterface
	eventBus eventbus.Publisher
	now      func() time.Time
}

// NewService creates a new booking service
func NewService(repo RepositoryInterface) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// SetEventBus sets the event bus for publishing booking events
func (s *Service) SetEventBus(bus eventbus.Publisher) {
	s.eventBus = bus
}

// SetClock replaces the clock used for cancellation fees
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) publishEvent(ctx context.Context, subject string, data interface{}) {
	if s.eventBus == nil {
		return
	}
	correlationID := logger.CorrelationIDFromContext(ctx)
	go func() {
		evt, err := eventbus.NewEvent(subject, "booking-service", data)
		if err != nil {
			logger.Warn("failed to create booking event", zap.String("subject", subject), zap.Error(err))
			return
		}
		evt.CorrelationID = correlationID
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.eventBus.Publish(pubCtx, subject, evt); err != nil {
			logger.Warn("failed to publish booking event", zap.String("subject", subject), zap.Error(err))
		}
	}()
}

// GetActivePolicy returns the active policy or a NotFound error
func (s *Service) GetActivePolicy(ctx context.Context) (*Policy, error) {
	policy, err := s.repo.GetActivePolicy(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("no active booking policy", ErrPolicyNotFound)
		}
		return nil, err
	}
	return policy, nil
}

// Quote validates a proposed duration and prices it under the active policy
func (s *Service) Quote(ctx context.Context, start, end time.Time, bookingType Type) (*Quote, error) {
	if err := checkRange(start, end, nil); err != nil {
		return nil, err
	}

	policy, err := s.GetActivePolicy(ctx)
	if err != nil {
		return nil, err
	}

	bookingType = normalizeType(bookingType)
	return &Quote{
		Validation: ValidateDuration(start, end, policy),
		Price:      Price(start, end, policy, bookingType),
		Type:       bookingType,
	}, nil
}

// ========================================
// CONFLICTS
// ========================================

// HasConflict reports whether the vehicle is occupied during [start, end) or
// any later occurrence of pattern.
func (s *Service) HasConflict(ctx context.Context, vehicleID uuid.UUID, start, end time.Time, pattern *RecurringPattern) (bool, error) {
	if err := checkRange(start, end, pattern); err != nil {
		return false, err
	}

	windows := Windows(start, end, pattern)
	last := windows[len(windows)-1]

	existing, err := s.repo.GetOccupyingBookings(ctx, vehicleID, start, last.End)
	if err != nil {
		return false, err
	}
	return Conflicts(existing, windows), nil
}

// HasConflictPattern is HasConflict with the pattern in its string form.
// Malformed patterns fail with ErrInvalidRecurringPattern.
func (s *Service) HasConflictPattern(ctx context.Context, vehicleID uuid.UUID, start, end time.Time, pattern *string) (bool, error) {
	p, err := parsePatternPtr(pattern)
	if err != nil {
		return false, err
	}
	return s.HasConflict(ctx, vehicleID, start, end, p)
}

// ========================================
// CREATE
// ========================================

// CreateRecurringBookings persists the follow-up occurrences of base as one
// batch. base itself is not written.
func (s *Service) CreateRecurringBookings(ctx context.Context, base *Booking, pattern RecurringPattern) ([]*Booking, error) {
	copies := Recurrences(base, pattern)
	if len(copies) == 0 {
		return copies, nil
	}
	if err := s.repo.InsertBookings(ctx, copies); err != nil {
		return nil, err
	}
	return copies, nil
}

// CreateBooking validates, prices and stores a booking with its recurrences.
// The conflict check and the insert run in one transaction.
func (s *Service) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*CreateBookingResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	pattern, err := parsePatternPtr(req.RecurringPattern)
	if err != nil {
		return nil, common.NewBadRequestError(err.Error(), err)
	}
	if err := checkRange(req.StartTime, req.EndTime, pattern); err != nil {
		return nil, err
	}

	policy, err := s.GetActivePolicy(ctx)
	if err != nil {
		return nil, err
	}

	if v := ValidateDuration(req.StartTime, req.EndTime, policy); !v.IsValid {
		return nil, common.NewValidationError(v.Error)
	}

	bookingType := normalizeType(req.Type)
	now := s.now()
	base := &Booking{
		ID:        uuid.New(),
		UserID:    req.UserID,
		VehicleID: req.VehicleID,
		Type:      bookingType,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    StatusConfirmed,
		Price:     Price(req.StartTime, req.EndTime, policy, bookingType),
		CreatedAt: now,
		UpdatedAt: now,
	}

	recurrences := []*Booking{}
	if pattern != nil {
		formatted := pattern.String()
		base.RecurringPattern = &formatted
		recurrences = Recurrences(base, *pattern)
	}

	all := append([]*Booking{base}, recurrences...)
	created, err := s.repo.CreateBookingsAtomic(ctx, req.VehicleID, all)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, common.NewConflictError("vehicle is already booked for the requested time")
	}

	logger.InfoContext(ctx, "booking created",
		zap.String("booking_id", base.ID.String()),
		zap.String("vehicle_id", base.VehicleID.String()),
		zap.Int64("price", base.Price),
		zap.Int("occurrences", len(all)),
	)

	s.publishEvent(ctx, eventbus.SubjectBookingCreated, eventbus.BookingEventData{
		BookingID:   base.ID,
		VehicleID:   base.VehicleID,
		UserID:      base.UserID,
		Status:      string(base.Status),
		Price:       base.Price,
		Occurrences: len(all),
		OccurredAt:  now,
	})

	return &CreateBookingResponse{Booking: base, Recurrences: recurrences}, nil
}

// ========================================
// CANCELLATION
// ========================================

// CancellationFee prices cancelling, now, a booking that starts at start
func (s *Service) CancellationFee(ctx context.Context, start time.Time) (int64, error) {
	policy, err := s.GetActivePolicy(ctx)
	if err != nil {
		return 0, err
	}
	return CancellationFee(start, s.now(), policy), nil
}

// CancelBooking cancels an occupying booking and reports the fee owed
func (s *Service) CancelBooking(ctx context.Context, bookingID uuid.UUID) (*CancelBookingResponse, error) {
	b, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("booking not found", ErrBookingNotFound)
		}
		return nil, err
	}
	if !b.Status.Occupies() {
		return nil, common.NewConflictError("booking is already " + string(b.Status))
	}

	policy, err := s.GetActivePolicy(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fee := CancellationFee(b.StartTime, now, policy)

	cancelled, err := s.repo.CancelBooking(ctx, bookingID, now)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, common.NewConflictError("booking changed while cancelling")
	}

	b.Status = StatusCancelled
	b.UpdatedAt = now

	logger.InfoContext(ctx, "booking cancelled",
		zap.String("booking_id", b.ID.String()),
		zap.Int64("cancellation_fee", fee),
	)

	s.publishEvent(ctx, eventbus.SubjectBookingCancelled, eventbus.BookingEventData{
		BookingID:       b.ID,
		VehicleID:       b.VehicleID,
		UserID:          b.UserID,
		Status:          string(b.Status),
		Price:           b.Price,
		Occurrences:     1,
		CancellationFee: fee,
		OccurredAt:      now,
	})

	return &CancelBookingResponse{Booking: b, CancellationFee: fee}, nil
}

// checkRange requires end after start and, for a series, occurrences that
// do not overlap each other.
func checkRange(start, end time.Time, pattern *RecurringPattern) error {
	if !end.After(start) {
		return common.NewValidationError("end time must be after start time")
	}
	if pattern != nil {
		if err := pattern.CheckSpacing(start, end); err != nil {
			return common.NewBadRequestError(err.Error(), err)
		}
	}
	return nil
}

func normalizeType(t Type) Type {
	if t == "" {
		return TypeStandard
	}
	return t
}
