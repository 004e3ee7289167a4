package contracts

import "sort"

// Holding is a whole-share position
type Holding struct {
	Shares        int64   `json:"shares"`
	EntryPrice    float64 `json:"entry_price"`
	HighWaterMark float64 `json:"high_water_mark"`
}

// PortfolioState is the ledger. It is passed by value and only the execution
// simulator produces new versions of it.
// ⭐ 계약: cash + Σ shares × last_close == portfolio value, cash >= 0
type PortfolioState struct {
	Cash     float64            `json:"cash"`
	Holdings map[string]Holding `json:"holdings"`
}

// NewPortfolioState creates an all-cash ledger
func NewPortfolioState(cash float64) PortfolioState {
	return PortfolioState{Cash: cash, Holdings: make(map[string]Holding)}
}

// Clone returns a deep copy
func (p PortfolioState) Clone() PortfolioState {
	holdings := make(map[string]Holding, len(p.Holdings))
	for sym, h := range p.Holdings {
		holdings[sym] = h
	}
	return PortfolioState{Cash: p.Cash, Holdings: holdings}
}

// Symbols returns held symbols in ascending order
func (p PortfolioState) Symbols() []string {
	symbols := make([]string, 0, len(p.Holdings))
	for sym := range p.Holdings {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// Holds reports whether symbol has a non-zero position
func (p PortfolioState) Holds(symbol string) bool {
	h, ok := p.Holdings[symbol]
	return ok && h.Shares > 0
}

// MarketValue sums shares × price; holdings without a price contribute nothing
func (p PortfolioState) MarketValue(prices map[string]float64) float64 {
	total := 0.0
	for _, sym := range p.Symbols() {
		total += float64(p.Holdings[sym].Shares) * prices[sym]
	}
	return total
}

// Value returns cash plus market value
func (p PortfolioState) Value(prices map[string]float64) float64 {
	return p.Cash + p.MarketValue(prices)
}

// Weights returns shares × price / value for each holding
func (p PortfolioState) Weights(prices map[string]float64) map[string]float64 {
	weights := make(map[string]float64, len(p.Holdings))
	value := p.Value(prices)
	if value <= 0 {
		return weights
	}
	for sym, h := range p.Holdings {
		weights[sym] = float64(h.Shares) * prices[sym] / value
	}
	return weights
}
