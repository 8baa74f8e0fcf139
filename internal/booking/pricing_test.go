package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() *Policy {
	return &Policy{
		ID:              uuid.New(),
		Name:            "default",
		MinDuration:     30,
		MaxDuration:     480,
		PricePerMinute:  decimal.NewFromInt(2),
		PricePerHour:    decimal.NewFromInt(100),
		PricePerDay:     decimal.NewFromInt(1000),
		LateFee:         decimal.NewFromInt(50),
		CancellationFee: decimal.NewFromInt(100),
		IsActive:        true,
	}
}

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func TestValidateDuration(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		name    string
		minutes int
		valid   bool
		message string
	}{
		{"too short", 20, false, "Booking duration must be at least 30 minutes"},
		{"too long", 500, false, "Booking duration cannot exceed 480 minutes"},
		{"within bounds", 60, true, ""},
		{"exactly minimum", 30, true, ""},
		{"exactly maximum", 480, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateDuration(t0, t0.Add(time.Duration(tt.minutes)*time.Minute), policy)
			assert.Equal(t, tt.valid, v.IsValid)
			assert.Equal(t, tt.message, v.Error)
		})
	}
}

func TestPrice(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		name     string
		duration time.Duration
		typ      Type
		want     int64
	}{
		{"per minute", 45 * time.Minute, TypeStandard, 90},
		{"per started hour", 90 * time.Minute, TypeStandard, 200},
		{"exactly one hour", 60 * time.Minute, TypeStandard, 100},
		{"per started day", 48 * time.Hour, TypeStandard, 2000},
		{"day and a minute", 24*time.Hour + time.Minute, TypeStandard, 2000},
		{"premium", 45 * time.Minute, TypePremium, 135},
		{"group", 45 * time.Minute, TypeGroup, 113},
		{"business has no multiplier", 45 * time.Minute, TypeBusiness, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Price(t0, t0.Add(tt.duration), policy, tt.typ))
		})
	}
}

func TestPrice_FractionalRates(t *testing.T) {
	policy := testPolicy()
	policy.PricePerMinute = decimal.RequireFromString("1.15")

	// 1.15 * 10 = 11.5 rounds half away from zero
	assert.Equal(t, int64(12), Price(t0, t0.Add(10*time.Minute), policy, TypeStandard))
}

func TestCancellationFee(t *testing.T) {
	policy := testPolicy()
	start := t0.Add(72 * time.Hour)

	tests := []struct {
		hoursBefore float64
		want        int64
	}{
		{50, 25},
		{48, 25},
		{30, 50},
		{24, 50},
		{13, 75},
		{12, 75},
		{2, 100},
		{-1, 100},
	}

	for _, tt := range tests {
		now := start.Add(-time.Duration(tt.hoursBefore * float64(time.Hour)))
		assert.Equal(t, tt.want, CancellationFee(start, now, policy), "%.0fh before start", tt.hoursBefore)
	}
}

func TestWindowOverlap(t *testing.T) {
	existing := Window{Start: t0, End: t0.Add(time.Hour)}

	assert.True(t, existing.Overlaps(Window{Start: t0.Add(30 * time.Minute), End: t0.Add(90 * time.Minute)}))
	assert.False(t, existing.Overlaps(Window{Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)}))
	assert.False(t, existing.Overlaps(Window{Start: t0.Add(-time.Hour), End: t0}))
	assert.True(t, existing.Overlaps(Window{Start: t0.Add(10 * time.Minute), End: t0.Add(20 * time.Minute)}))
	assert.True(t, existing.Overlaps(Window{Start: t0.Add(-time.Hour), End: t0.Add(2 * time.Hour)}))
}

func TestConflicts_IgnoresInactiveBookings(t *testing.T) {
	window := []Window{{Start: t0, End: t0.Add(time.Hour)}}
	cancelled := &Booking{Status: StatusCancelled, StartTime: t0, EndTime: t0.Add(time.Hour)}
	completed := &Booking{Status: StatusCompleted, StartTime: t0, EndTime: t0.Add(time.Hour)}
	pending := &Booking{Status: StatusPending, StartTime: t0, EndTime: t0.Add(time.Hour)}

	assert.False(t, Conflicts([]*Booking{cancelled, completed}, window))
	assert.True(t, Conflicts([]*Booking{cancelled, pending}, window))
}

func TestParseRecurringPattern(t *testing.T) {
	p, err := ParseRecurringPattern("weekly:4")
	require.NoError(t, err)
	assert.Equal(t, RecurringPattern{Frequency: FrequencyWeekly, Occurrences: 4}, p)
	assert.Equal(t, "weekly:4", p.String())

	p, err = ParseRecurringPattern("DAILY:1")
	require.NoError(t, err)
	assert.Equal(t, FrequencyDaily, p.Frequency)

	for _, bad := range []string{"", "daily", "yearly:3", "daily:0", "daily:-2", "monthly:x", "daily:3:1", "daily:1000"} {
		_, err := ParseRecurringPattern(bad)
		assert.ErrorIs(t, err, ErrInvalidRecurringPattern, bad)
	}
}

func TestWindows(t *testing.T) {
	end := t0.Add(time.Hour)

	assert.Len(t, Windows(t0, end, nil), 1)

	monthly := &RecurringPattern{Frequency: FrequencyMonthly, Occurrences: 3}
	windows := Windows(t0, end, monthly)
	require.Len(t, windows, 3)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), windows[2].Start)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC), windows[2].End)

	weekly := &RecurringPattern{Frequency: FrequencyWeekly, Occurrences: 2}
	assert.Equal(t, t0.AddDate(0, 0, 7), Windows(t0, end, weekly)[1].Start)
}

func TestCheckSpacing(t *testing.T) {
	daily := RecurringPattern{Frequency: FrequencyDaily, Occurrences: 3}
	assert.NoError(t, daily.CheckSpacing(t0, t0.Add(time.Hour)))
	assert.NoError(t, daily.CheckSpacing(t0, t0.Add(24*time.Hour)), "back-to-back occurrences do not overlap")
	assert.ErrorIs(t, daily.CheckSpacing(t0, t0.Add(36*time.Hour)), ErrInvalidRecurringPattern)

	single := RecurringPattern{Frequency: FrequencyDaily, Occurrences: 1}
	assert.NoError(t, single.CheckSpacing(t0, t0.Add(36*time.Hour)))

	weekly := RecurringPattern{Frequency: FrequencyWeekly, Occurrences: 2}
	assert.NoError(t, weekly.CheckSpacing(t0, t0.Add(36*time.Hour)))
	assert.ErrorIs(t, weekly.CheckSpacing(t0, t0.AddDate(0, 0, 8)), ErrInvalidRecurringPattern)
}

func TestRecurrences(t *testing.T) {
	pattern := "daily:3"
	base := &Booking{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		VehicleID:        uuid.New(),
		Type:             TypePremium,
		StartTime:        t0,
		EndTime:          t0.Add(time.Hour),
		Status:           StatusConfirmed,
		Price:            135,
		RecurringPattern: &pattern,
	}

	copies := Recurrences(base, RecurringPattern{Frequency: FrequencyDaily, Occurrences: 3})

	require.Len(t, copies, 2)
	for i, c := range copies {
		assert.NotEqual(t, base.ID, c.ID)
		assert.Nil(t, c.RecurringPattern)
		assert.Equal(t, base.VehicleID, c.VehicleID)
		assert.Equal(t, base.Price, c.Price)
		assert.Equal(t, t0.AddDate(0, 0, i+1), c.StartTime)
		assert.Equal(t, time.Hour, c.EndTime.Sub(c.StartTime))
	}
	require.NotNil(t, base.RecurringPattern)
	assert.Equal(t, "daily:3", *base.RecurringPattern)
}
