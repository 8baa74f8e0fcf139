package booking

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/fleet-engine/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ========================================
// MOCK DEFINITIONS
// ========================================

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetActivePolicy(ctx context.Context) (*Policy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Policy), args.Error(1)
}

func (m *mockRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *mockRepository) GetOccupyingBookings(ctx context.Context, vehicleID uuid.UUID, from, to time.Time) ([]*Booking, error) {
	args := m.Called(ctx, vehicleID, from, to)
	bookings, _ := args.Get(0).([]*Booking)
	return bookings, args.Error(1)
}

func (m *mockRepository) CreateBookingsAtomic(ctx context.Context, vehicleID uuid.UUID, bookings []*Booking) (bool, error) {
	args := m.Called(ctx, vehicleID, bookings)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) InsertBookings(ctx context.Context, bookings []*Booking) error {
	args := m.Called(ctx, bookings)
	return args.Error(0)
}

func (m *mockRepository) CancelBooking(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func newTestService(now time.Time) (*Service, *mockRepository) {
	repo := new(mockRepository)
	svc := NewService(repo)
	svc.SetClock(func() time.Time { return now })
	return svc, repo
}

// ========================================
// CONFLICTS
// ========================================

func TestHasConflict_HalfOpenOverlap(t *testing.T) {
	svc, repo := newTestService(t0)
	vehicleID := uuid.New()
	existing := []*Booking{{
		VehicleID: vehicleID,
		Status:    StatusConfirmed,
		StartTime: t0,
		EndTime:   t0.Add(time.Hour),
	}}
	repo.On("GetOccupyingBookings", mock.Anything, vehicleID, mock.Anything, mock.Anything).Return(existing, nil)

	overlapping, err := svc.HasConflict(context.Background(), vehicleID, t0.Add(30*time.Minute), t0.Add(90*time.Minute), nil)
	require.NoError(t, err)
	assert.True(t, overlapping)

	abutting, err := svc.HasConflict(context.Background(), vehicleID, t0.Add(time.Hour), t0.Add(2*time.Hour), nil)
	require.NoError(t, err)
	assert.False(t, abutting)
}

func TestHasConflict_LaterOccurrence(t *testing.T) {
	svc, repo := newTestService(t0)
	vehicleID := uuid.New()
	third := t0.AddDate(0, 0, 14)
	existing := []*Booking{{Status: StatusPending, StartTime: third, EndTime: third.Add(time.Hour)}}

	pattern := &RecurringPattern{Frequency: FrequencyWeekly, Occurrences: 3}
	repo.On("GetOccupyingBookings", mock.Anything, vehicleID, t0, third.Add(time.Hour)).Return(existing, nil)

	conflict, err := svc.HasConflict(context.Background(), vehicleID, t0, t0.Add(time.Hour), pattern)

	require.NoError(t, err)
	assert.True(t, conflict)
	repo.AssertExpectations(t)
}

func TestHasConflictPattern_Invalid(t *testing.T) {
	svc, repo := newTestService(t0)
	pattern := "fortnightly:2"

	_, err := svc.HasConflictPattern(context.Background(), uuid.New(), t0, t0.Add(time.Hour), &pattern)

	assert.ErrorIs(t, err, ErrInvalidRecurringPattern)
	repo.AssertNotCalled(t, "GetOccupyingBookings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHasConflict_RejectsReversedRange(t *testing.T) {
	svc, repo := newTestService(t0)

	_, err := svc.HasConflict(context.Background(), uuid.New(), t0, t0, nil)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
	repo.AssertNotCalled(t, "GetOccupyingBookings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHasConflict_RejectsSelfOverlappingSeries(t *testing.T) {
	svc, repo := newTestService(t0)
	pattern := &RecurringPattern{Frequency: FrequencyDaily, Occurrences: 3}

	_, err := svc.HasConflict(context.Background(), uuid.New(), t0, t0.Add(36*time.Hour), pattern)

	assert.ErrorIs(t, err, ErrInvalidRecurringPattern)
	repo.AssertNotCalled(t, "GetOccupyingBookings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHasConflict_StoreError(t *testing.T) {
	svc, repo := newTestService(t0)
	repo.On("GetOccupyingBookings", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))

	_, err := svc.HasConflict(context.Background(), uuid.New(), t0, t0.Add(time.Hour), nil)

	assert.EqualError(t, err, "connection reset")
}

// ========================================
// CREATE
// ========================================

func validCreateRequest() *CreateBookingRequest {
	return &CreateBookingRequest{
		UserID:    uuid.New(),
		VehicleID: uuid.New(),
		Type:      TypePremium,
		StartTime: t0,
		EndTime:   t0.Add(45 * time.Minute),
	}
}

func TestCreateBooking_Success(t *testing.T) {
	svc, repo := newTestService(t0.Add(-time.Hour))
	req := validCreateRequest()

	repo.On("GetActivePolicy", mock.Anything).Return(testPolicy(), nil)
	repo.On("CreateBookingsAtomic", mock.Anything, req.VehicleID, mock.MatchedBy(func(b []*Booking) bool {
		return len(b) == 1
	})).Return(true, nil)

	resp, err := svc.CreateBooking(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, int64(135), resp.Booking.Price)
	assert.Equal(t, StatusConfirmed, resp.Booking.Status)
	assert.Nil(t, resp.Booking.RecurringPattern)
	assert.Empty(t, resp.Recurrences)
}

func TestCreateBooking_Recurring(t *testing.T) {
	svc, repo := newTestService(t0)
	req := validCreateRequest()
	pattern := "Daily:3"
	req.RecurringPattern = &pattern

	repo.On("GetActivePolicy", mock.Anything).Return(testPolicy(), nil)
	repo.On("CreateBookingsAtomic", mock.Anything, req.VehicleID, mock.MatchedBy(func(b []*Booking) bool {
		return len(b) == 3 && b[0].RecurringPattern != nil && b[1].RecurringPattern == nil
	})).Return(true, nil)

	resp, err := svc.CreateBooking(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, resp.Booking.RecurringPattern)
	assert.Equal(t, "daily:3", *resp.Booking.RecurringPattern)
	assert.Len(t, resp.Recurrences, 2)
}

func TestCreateBooking_Conflict(t *testing.T) {
	svc, repo := newTestService(t0)
	req := validCreateRequest()

	repo.On("GetActivePolicy", mock.Anything).Return(testPolicy(), nil)
	repo.On("CreateBookingsAtomic", mock.Anything, req.VehicleID, mock.Anything).Return(false, nil)

	_, err := svc.CreateBooking(context.Background(), req)

	require.Error(t, err)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.Code)
}

func TestCreateBooking_DurationOutOfPolicy(t *testing.T) {
	svc, repo := newTestService(t0)
	req := validCreateRequest()
	req.EndTime = t0.Add(20 * time.Minute)

	repo.On("GetActivePolicy", mock.Anything).Return(testPolicy(), nil)

	_, err := svc.CreateBooking(context.Background(), req)

	require.Error(t, err)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Booking duration must be at least 30 minutes", appErr.Message)
	repo.AssertNotCalled(t, "CreateBookingsAtomic", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_InvalidInput(t *testing.T) {
	svc, repo := newTestService(t0)

	reversed := validCreateRequest()
	reversed.EndTime = reversed.StartTime.Add(-time.Minute)
	_, err := svc.CreateBooking(context.Background(), reversed)
	require.Error(t, err)

	badType := validCreateRequest()
	badType.Type = "LIMO"
	_, err = svc.CreateBooking(context.Background(), badType)
	require.Error(t, err)

	badPattern := validCreateRequest()
	pattern := "daily:zero"
	badPattern.RecurringPattern = &pattern
	_, err = svc.CreateBooking(context.Background(), badPattern)
	assert.ErrorIs(t, err, ErrInvalidRecurringPattern)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	repo.AssertNotCalled(t, "GetActivePolicy", mock.Anything)
}

func TestCreateBooking_SelfOverlappingSeries(t *testing.T) {
	svc, repo := newTestService(t0)
	req := validCreateRequest()
	req.EndTime = t0.Add(36 * time.Hour)
	pattern := "daily:3"
	req.RecurringPattern = &pattern

	_, err := svc.CreateBooking(context.Background(), req)

	assert.ErrorIs(t, err, ErrInvalidRecurringPattern)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
	repo.AssertNotCalled(t, "GetActivePolicy", mock.Anything)
	repo.AssertNotCalled(t, "CreateBookingsAtomic", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_NoActivePolicy(t *testing.T) {
	svc, repo := newTestService(t0)
	repo.On("GetActivePolicy", mock.Anything).Return(nil, pgx.ErrNoRows)

	_, err := svc.CreateBooking(context.Background(), validCreateRequest())

	assert.True(t, common.IsNotFound(err))
	assert.ErrorIs(t, err, ErrPolicyNotFound)
}

func TestCreateRecurringBookings(t *testing.T) {
	svc, repo := newTestService(t0)
	pattern := RecurringPattern{Frequency: FrequencyWeekly, Occurrences: 4}
	base := &Booking{ID: uuid.New(), StartTime: t0, EndTime: t0.Add(time.Hour)}

	repo.On("InsertBookings", mock.Anything, mock.MatchedBy(func(b []*Booking) bool {
		return len(b) == 3
	})).Return(nil)

	copies, err := svc.CreateRecurringBookings(context.Background(), base, pattern)

	require.NoError(t, err)
	require.Len(t, copies, 3)
	assert.Equal(t, t0.AddDate(0, 0, 21), copies[2].StartTime)
}

func TestCreateRecurringBookings_SingleOccurrence(t *testing.T) {
	svc, repo := newTestService(t0)

	copies, err := svc.CreateRecurringBookings(context.Background(), &Booking{}, RecurringPattern{Frequency: FrequencyDaily, Occurrences: 1})

	require.NoError(t, err)
	assert.Empty(t, copies)
	repo.AssertNotCalled(t, "InsertBookings", mock.Anything, mock.Anything)
}

// ========================================
// CANCELLATION
// ========================================

func TestCancellationFee_UsesClock(t *testing.T) {
	start := t0.Add(100 * time.Hour)
	svc, repo := newTestService(start.Add(-30 * time.Hour))
	repo.On("GetActivePolicy", mock.Anything).Return(testPolicy(), nil)

	fee, err := svc.CancellationFee(context.Background(), start)

	require.NoError(t, err)
	assert.Equal(t, int64(50), fee)
}

func TestCancelBooking_Success(t *testing.T) {
	now := t0.Add(-13 * time.Hour)
	svc, repo := newTestService(now)
	b := &Booking{ID: uuid.New(), Status: StatusConfirmed, StartTime: t0, EndTime: t0.Add(time.Hour)}

	repo.On("GetBookingByID", mock.Anything, b.ID).Return(b, nil)
	repo.On("GetActivePolicy", mock.Anything).Return(testPolicy(), nil)
	repo.On("CancelBooking", mock.Anything, b.ID, now).Return(true, nil)

	resp, err := svc.CancelBooking(context.Background(), b.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(75), resp.CancellationFee)
	assert.Equal(t, StatusCancelled, resp.Booking.Status)
}

func TestCancelBooking_NotFound(t *testing.T) {
	svc, repo := newTestService(t0)
	id := uuid.New()
	repo.On("GetBookingByID", mock.Anything, id).Return(nil, pgx.ErrNoRows)

	_, err := svc.CancelBooking(context.Background(), id)

	assert.True(t, common.IsNotFound(err))
}

func TestCancelBooking_AlreadyCancelled(t *testing.T) {
	svc, repo := newTestService(t0)
	b := &Booking{ID: uuid.New(), Status: StatusCancelled}
	repo.On("GetBookingByID", mock.Anything, b.ID).Return(b, nil)

	_, err := svc.CancelBooking(context.Background(), b.ID)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.Code)
}

func TestQuote_RejectsReversedRange(t *testing.T) {
	svc, repo := newTestService(t0)

	_, err := svc.Quote(context.Background(), t0, t0.Add(-time.Hour), TypeStandard)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
	repo.AssertNotCalled(t, "GetActivePolicy", mock.Anything)
}

func TestQuote_DefaultsToStandard(t *testing.T) {
	svc, repo := newTestService(t0)
	repo.On("GetActivePolicy", mock.Anything).Return(testPolicy(), nil)

	quote, err := svc.Quote(context.Background(), t0, t0.Add(90*time.Minute), "")

	require.NoError(t, err)
	assert.True(t, quote.Validation.IsValid)
	assert.Equal(t, int64(200), quote.Price)
	assert.Equal(t, TypeStandard, quote.Type)
}
