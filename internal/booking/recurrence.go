package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRecurringPattern is returned for malformed pattern strings
var ErrInvalidRecurringPattern = errors.New("invalid recurring pattern")

// maxOccurrences bounds a single recurring series
const maxOccurrences = 366

// Frequency is how often a recurring booking repeats
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// RecurringPattern is a parsed "<daily|weekly|monthly>:<count>" descriptor.
// Occurrences counts the base booking.
type RecurringPattern struct {
	Frequency   Frequency `json:"frequency"`
	Occurrences int       `json:"occurrences"`
}

// ParseRecurringPattern parses a pattern such as "weekly:4".
func ParseRecurringPattern(s string) (RecurringPattern, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return RecurringPattern{}, fmt.Errorf("%w: %q", ErrInvalidRecurringPattern, s)
	}

	var freq Frequency
	switch strings.ToLower(parts[0]) {
	case "daily":
		freq = FrequencyDaily
	case "weekly":
		freq = FrequencyWeekly
	case "monthly":
		freq = FrequencyMonthly
	default:
		return RecurringPattern{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRecurringPattern, parts[0])
	}

	count, err := strconv.Atoi(parts[1])
	if err != nil || count < 1 || count > maxOccurrences {
		return RecurringPattern{}, fmt.Errorf("%w: occurrence count must be between 1 and %d", ErrInvalidRecurringPattern, maxOccurrences)
	}

	return RecurringPattern{Frequency: freq, Occurrences: count}, nil
}

// String formats the pattern in its wire form.
func (p RecurringPattern) String() string {
	return strings.ToLower(string(p.Frequency)) + ":" + strconv.Itoa(p.Occurrences)
}

// Shift moves t forward by n periods.
func (p RecurringPattern) Shift(t time.Time, n int) time.Time {
	switch p.Frequency {
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7*n)
	case FrequencyMonthly:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// CheckSpacing rejects a series whose occurrences of [start, end) would
// overlap one another, i.e. a period shorter than the booking itself.
func (p RecurringPattern) CheckSpacing(start, end time.Time) error {
	windows := Windows(start, end, &p)
	for i := 1; i < len(windows); i++ {
		if windows[i].Overlaps(windows[i-1]) {
			return fmt.Errorf("%w: %s repeats before a %s booking ends",
				ErrInvalidRecurringPattern, strings.ToLower(string(p.Frequency)), end.Sub(start))
		}
	}
	return nil
}

// Windows returns every occurrence of [start, end), the base first. A nil
// pattern yields the base window only.
func Windows(start, end time.Time, p *RecurringPattern) []Window {
	if p == nil {
		return []Window{{Start: start, End: end}}
	}

	windows := make([]Window, 0, p.Occurrences)
	for i := 0; i < p.Occurrences; i++ {
		windows = append(windows, Window{Start: p.Shift(start, i), End: p.Shift(end, i)})
	}
	return windows
}

// Recurrences builds the Occurrences-1 follow-up bookings of base. Copies
// share every field except id, times and pattern, which is nil.
func Recurrences(base *Booking, p RecurringPattern) []*Booking {
	copies := make([]*Booking, 0, p.Occurrences-1)
	for i := 1; i < p.Occurrences; i++ {
		c := *base
		c.ID = uuid.New()
		c.StartTime = p.Shift(base.StartTime, i)
		c.EndTime = p.Shift(base.EndTime, i)
		c.RecurringPattern = nil
		copies = append(copies, &c)
	}
	return copies
}

// Conflicts reports whether any occupying booking overlaps any window.
func Conflicts(existing []*Booking, windows []Window) bool {
	for _, b := range existing {
		if !b.Status.Occupies() {
			continue
		}
		held := Window{Start: b.StartTime, End: b.EndTime}
		for _, w := range windows {
			if held.Overlaps(w) {
				return true
			}
		}
	}
	return false
}

// parsePatternPtr parses an optional pattern string.
func parsePatternPtr(s *string) (*RecurringPattern, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	p, err := ParseRecurringPattern(*s)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
