package contracts

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Bar is one daily OHLCV observation
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// AssetSeries holds the bars of one symbol, strictly increasing by date
// ⭐ SSOT: 가격 시계열은 이 타입으로만 전달
type AssetSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Validate rejects unsorted or duplicate dates
func (s *AssetSeries) Validate() error {
	if s == nil {
		return fmt.Errorf("series is nil")
	}
	if s.Symbol == "" {
		return fmt.Errorf("series symbol is empty")
	}
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("%s: bar %d (%s) not after %s",
				s.Symbol, i, s.Bars[i].Date.Format("2006-01-02"), s.Bars[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Len returns the number of bars
func (s *AssetSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// IndexOf finds the bar dated exactly on date
func (s *AssetSeries) IndexOf(date time.Time) (int, bool) {
	if s == nil {
		return 0, false
	}
	i := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Date.Before(date)
	})
	if i < len(s.Bars) && s.Bars[i].Date.Equal(date) {
		return i, true
	}
	return 0, false
}

// Closes returns the close prices of bars[0..upto] inclusive
func (s *AssetSeries) Closes(upto int) []float64 {
	if s == nil || upto < 0 {
		return nil
	}
	if upto >= len(s.Bars) {
		upto = len(s.Bars) - 1
	}
	closes := make([]float64, upto+1)
	for i := 0; i <= upto; i++ {
		closes[i] = s.Bars[i].Close
	}
	return closes
}

// Slice returns a copy restricted to [from, to]; zero times are open bounds
func (s *AssetSeries) Slice(from, to time.Time) *AssetSeries {
	out := &AssetSeries{Symbol: s.Symbol}
	for _, b := range s.Bars {
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		if !to.IsZero() && b.Date.After(to) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}

// ValidPrice reports whether p can be traded or scored
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// Universe maps symbol to its series
type Universe map[string]*AssetSeries

// Symbols returns the universe symbols in ascending order
func (u Universe) Symbols() []string {
	symbols := make([]string, 0, len(u))
	for sym := range u {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// Dates returns the sorted union of bar dates within [from, to]
func (u Universe) Dates(from, to time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, s := range u {
		if s == nil {
			continue
		}
		for _, b := range s.Bars {
			if !from.IsZero() && b.Date.Before(from) {
				continue
			}
			if !to.IsZero() && b.Date.After(to) {
				continue
			}
			seen[b.Date] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// ClosesOn returns the close of every symbol that has a bar on date
func (u Universe) ClosesOn(date time.Time) map[string]float64 {
	closes := make(map[string]float64)
	for sym, s := range u {
		if i, ok := s.IndexOf(date); ok {
			closes[sym] = s.Bars[i].Close
		}
	}
	return closes
}
