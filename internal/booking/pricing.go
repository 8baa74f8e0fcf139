package booking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	minutesPerHour = decimal.NewFromInt(60)
	minutesPerDay  = decimal.NewFromInt(1440)

	premiumMultiplier = decimal.RequireFromString("1.5")
	groupMultiplier   = decimal.RequireFromString("1.25")

	feeShare48h = decimal.RequireFromString("0.25")
	feeShare24h = decimal.RequireFromString("0.5")
	feeShare12h = decimal.RequireFromString("0.75")
)

// ValidateDuration checks end-start against the policy bounds.
func ValidateDuration(start, end time.Time, policy *Policy) DurationValidation {
	minutes := end.Sub(start).Minutes()

	if minutes < float64(policy.MinDuration) {
		return DurationValidation{
			Error: fmt.Sprintf("Booking duration must be at least %d minutes", policy.MinDuration),
		}
	}
	if minutes > float64(policy.MaxDuration) {
		return DurationValidation{
			Error: fmt.Sprintf("Booking duration cannot exceed %d minutes", policy.MaxDuration),
		}
	}
	return DurationValidation{IsValid: true}
}

// Price computes the booking price. Under an hour is billed per minute,
// under a day per started hour, otherwise per started day.
func Price(start, end time.Time, policy *Policy, bookingType Type) int64 {
	minutes := decimal.NewFromFloat(end.Sub(start).Minutes())

	var base decimal.Decimal
	switch {
	case minutes.LessThan(minutesPerHour):
		base = policy.PricePerMinute.Mul(minutes)
	case minutes.LessThan(minutesPerDay):
		base = policy.PricePerHour.Mul(minutes.Div(minutesPerHour).Ceil())
	default:
		base = policy.PricePerDay.Mul(minutes.Div(minutesPerDay).Ceil())
	}

	return base.Mul(typeMultiplier(bookingType)).Round(0).IntPart()
}

func typeMultiplier(t Type) decimal.Decimal {
	switch t {
	case TypePremium:
		return premiumMultiplier
	case TypeGroup:
		return groupMultiplier
	default:
		return decimal.NewFromInt(1)
	}
}

// CancellationFee returns the share of the policy fee owed when cancelling
// at now a booking that starts at start.
func CancellationFee(start, now time.Time, policy *Policy) int64 {
	hours := start.Sub(now).Hours()
	fee := policy.CancellationFee

	switch {
	case hours >= 48:
		fee = fee.Mul(feeShare48h)
	case hours >= 24:
		fee = fee.Mul(feeShare24h)
	case hours >= 12:
		fee = fee.Mul(feeShare12h)
	}

	return fee.Round(0).IntPart()
}
