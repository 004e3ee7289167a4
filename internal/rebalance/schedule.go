package rebalance

import (
	"fmt"
	"time"
)

// Frequency is the rebalance cadence
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// IntervalDays returns the minimum calendar days between two rebalances
func (f Frequency) IntervalDays() (int, error) {
	switch f {
	case Daily:
		return 1, nil
	case Weekly:
		return 7, nil
	case Monthly:
		return 30, nil
	default:
		return 0, fmt.Errorf("unknown rebalance frequency %q", string(f))
	}
}

// Schedule decides which bars trigger a rebalance.
// Elapsed time is counted in calendar days, not trading bars.
type Schedule struct {
	interval      int
	lastRebalance *time.Time
}

// NewSchedule creates a schedule that has never fired
func NewSchedule(freq Frequency) (*Schedule, error) {
	interval, err := freq.IntervalDays()
	if err != nil {
		return nil, err
	}
	return &Schedule{interval: interval}, nil
}

// Due reports whether date should trigger a rebalance
func (s *Schedule) Due(date time.Time) bool {
	if s.lastRebalance == nil {
		return true
	}
	return CalendarDaysBetween(*s.lastRebalance, date) >= s.interval
}

// MarkDone records date as the last rebalance, whether or not anything traded
func (s *Schedule) MarkDone(date time.Time) {
	d := date
	s.lastRebalance = &d
}

// LastRebalance returns the last fired date
func (s *Schedule) LastRebalance() (time.Time, bool) {
	if s.lastRebalance == nil {
		return time.Time{}, false
	}
	return *s.lastRebalance, true
}

// CalendarDaysBetween counts whole calendar days from a to b
func CalendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
