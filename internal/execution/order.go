package execution

import (
	"github.com/wonny/aegis-rotation/internal/contracts"
)

// Order is an intended trade before it meets the ledger
type Order struct {
	Symbol   string                `json:"symbol"`
	Side     contracts.TradeAction `json:"side"`
	Quantity int64                 `json:"quantity"`
	Price    float64               `json:"price"`
	Reason   contracts.TradeReason `json:"reason"`
}

// FillStatus is the outcome of one order
type FillStatus string

const (
	StatusFilled  FillStatus = "filled"
	StatusSkipped FillStatus = "skipped"
)

// Skip reasons
const (
	SkipNoPrice          = "no_price"
	SkipInsufficientCash = "insufficient_cash"
	SkipNoPosition       = "no_position"
)

// Fill reports what happened to an order; Trade is set only when filled
type Fill struct {
	Order      Order                  `json:"order"`
	Status     FillStatus             `json:"status"`
	SkipReason string                 `json:"skip_reason,omitempty"`
	Trade      *contracts.TradeRecord `json:"trade,omitempty"`
}

// ExecutionResult is returned directly by every simulator call
// ⭐ 계약: 체결 통지는 콜백이 아니라 반환값으로 전달
type ExecutionResult struct {
	Fills []Fill `json:"fills"`
}

// Trades returns the filled trade records in execution order
func (r *ExecutionResult) Trades() []contracts.TradeRecord {
	trades := make([]contracts.TradeRecord, 0, len(r.Fills))
	for _, f := range r.Fills {
		if f.Status == StatusFilled && f.Trade != nil {
			trades = append(trades, *f.Trade)
		}
	}
	return trades
}

// Skipped returns the orders that did not execute
func (r *ExecutionResult) Skipped() []Fill {
	skipped := make([]Fill, 0)
	for _, f := range r.Fills {
		if f.Status == StatusSkipped {
			skipped = append(skipped, f)
		}
	}
	return skipped
}

// Prices carries the two price views the simulator needs on a bar
type Prices struct {
	Close map[string]float64 // closes of bars dated today; the only executable prices
	Last  map[string]float64 // most recent known close per symbol, for valuation
}

// Valuation returns today's close if usable, otherwise the last known close
func (p Prices) Valuation(symbol string) float64 {
	if c, ok := p.Close[symbol]; ok && contracts.ValidPrice(c) {
		return c
	}
	return p.Last[symbol]
}

// Executable returns today's close when it can be traded
func (p Prices) Executable(symbol string) (float64, bool) {
	c, ok := p.Close[symbol]
	if !ok || !contracts.ValidPrice(c) {
		return 0, false
	}
	return c, true
}

// ValuationMap merges Last and Close into one map
func (p Prices) ValuationMap() map[string]float64 {
	out := make(map[string]float64, len(p.Last)+len(p.Close))
	for sym, v := range p.Last {
		out[sym] = v
	}
	for sym, v := range p.Close {
		if contracts.ValidPrice(v) {
			out[sym] = v
		}
	}
	return out
}
