package data

import (
	"time"

	"github.com/wonny/aegis-rotation/internal/contracts"
)

// Coverage summarizes how usable one symbol's series is for a run
type Coverage struct {
	Symbol        string    `json:"symbol"`
	Bars          int       `json:"bars"`
	First         time.Time `json:"first,omitempty"`
	Last          time.Time `json:"last,omitempty"`
	MissingDays   int       `json:"missing_days"`   // 거래일인데 바가 없는 날
	InvalidCloses int       `json:"invalid_closes"` // 0/NaN/Inf 종가
	Ratio         float64   `json:"ratio"`          // 바 보유 거래일 / 전체 거래일
}

// CheckCoverage compares each series against the calendar's trading days in [from, to].
// The expected days are those between the earliest and latest bar of the whole universe
// when a bound is open.
// ⭐ SSOT: 데이터 품질 검증은 여기서만
func CheckCoverage(universe contracts.Universe, cal contracts.TradingCalendar, from, to time.Time) []Coverage {
	dates := universe.Dates(from, to)
	if len(dates) > 0 {
		if from.IsZero() {
			from = dates[0]
		}
		if to.IsZero() {
			to = dates[len(dates)-1]
		}
	}

	expected := make([]time.Time, 0)
	if !from.IsZero() && !to.IsZero() {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if cal.IsTradingDay(d) {
				expected = append(expected, d)
			}
		}
	}

	out := make([]Coverage, 0, len(universe))
	for _, sym := range universe.Symbols() {
		s := &contracts.AssetSeries{Symbol: sym}
		if universe[sym] != nil {
			s = universe[sym].Slice(from, to)
		}
		c := Coverage{Symbol: sym, Bars: s.Len()}
		if s.Len() > 0 {
			c.First = s.Bars[0].Date
			c.Last = s.Bars[s.Len()-1].Date
		}
		for _, b := range s.Bars {
			if !contracts.ValidPrice(b.Close) {
				c.InvalidCloses++
			}
		}

		present := 0
		for _, d := range expected {
			if _, ok := s.IndexOf(d); ok {
				present++
			} else {
				c.MissingDays++
			}
		}
		if len(expected) > 0 {
			c.Ratio = float64(present) / float64(len(expected))
		}
		out = append(out, c)
	}
	return out
}
