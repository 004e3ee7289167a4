package contracts

import (
	"context"
	"errors"
	"time"
)

// ErrDataUnavailable means a store holds no bars for the requested symbol/range
var ErrDataUnavailable = errors.New("data unavailable")

// PriceStore reads daily bars
// ⭐ SSOT: 가격 데이터 조회 인터페이스
type PriceStore interface {
	GetSeries(ctx context.Context, symbol string, from, to time.Time) (*AssetSeries, error)
}

// SymbolLister enumerates the symbols a store knows
type SymbolLister interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

// BarWriter persists bars, replacing existing rows on the same date
type BarWriter interface {
	SaveBatch(ctx context.Context, series *AssetSeries) (int, error)
}

// TradingCalendar answers whether a date is a trading session
type TradingCalendar interface {
	IsTradingDay(date time.Time) bool
}

// EvaluationInput is what a strategy sees on a scheduled bar
type EvaluationInput struct {
	Date     time.Time
	Universe Universe
}

// Decision is a strategy's answer for one scheduled bar
type Decision struct {
	Scores   []MomentumScore
	Selected []string
	Targets  map[string]float64
}

// Strategy turns market data and the current ledger into target weights
type Strategy interface {
	Name() string
	Evaluate(state PortfolioState, in EvaluationInput) (*Decision, error)
}
