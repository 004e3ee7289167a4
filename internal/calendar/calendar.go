package calendar

import "time"

// WeekdayCalendar treats Monday through Friday as trading days, minus holidays
type WeekdayCalendar struct {
	holidays map[string]struct{}
}

// NewWeekdayCalendar creates a calendar with the given market holidays
func NewWeekdayCalendar(holidays []time.Time) *WeekdayCalendar {
	c := &WeekdayCalendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[key(h)] = struct{}{}
	}
	return c
}

// IsTradingDay implements contracts.TradingCalendar
func (c *WeekdayCalendar) IsTradingDay(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[key(date)]
	return !holiday
}

// TradingDaysBetween counts trading days in [from, to]
func (c *WeekdayCalendar) TradingDaysBetween(from, to time.Time) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			n++
		}
	}
	return n
}

// AllDays accepts every date; bar data alone decides the session set
type AllDays struct{}

// IsTradingDay implements contracts.TradingCalendar
func (AllDays) IsTradingDay(time.Time) bool { return true }

func key(t time.Time) string {
	return t.Format("2006-01-02")
}
