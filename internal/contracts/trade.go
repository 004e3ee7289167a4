package contracts

import "time"

// TradeAction is buy or sell
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// TradeReason explains why a trade happened
type TradeReason string

const (
	ReasonRebalance    TradeReason = "rebalance"
	ReasonStopLoss     TradeReason = "stop_loss"
	ReasonTrailingStop TradeReason = "trailing_stop"
)

// IsRiskExit reports whether the reason came from the risk controller
func (r TradeReason) IsRiskExit() bool {
	return r == ReasonStopLoss || r == ReasonTrailingStop
}

// TradeRecord is one executed fill. Trade history is append-only.
type TradeRecord struct {
	Date           time.Time   `json:"date"`
	Symbol         string      `json:"symbol"`
	Action         TradeAction `json:"action"`
	Quantity       int64       `json:"quantity"`
	Price          float64     `json:"price"`
	Cost           float64     `json:"cost"`
	Reason         TradeReason `json:"reason"`
	RealizedPnL    float64     `json:"realized_pnl"`
	RealizedReturn float64     `json:"realized_return"`
}

// Notional returns quantity × price
func (t TradeRecord) Notional() float64 {
	return float64(t.Quantity) * t.Price
}

// MomentumScore is kept for audit; Eligible means it passed the threshold
type MomentumScore struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Eligible bool      `json:"eligible"`
}

// RebalanceEvent records one scheduled evaluation
type RebalanceEvent struct {
	Date           time.Time          `json:"date"`
	MomentumScores []MomentumScore    `json:"momentum_scores"`
	SelectedAssets []string           `json:"selected_assets"`
	TargetWeights  map[string]float64 `json:"target_weights"`
	Skipped        []string           `json:"skipped,omitempty"` // risk-exited on the same bar
}

// ValueSnapshot is the end-of-bar portfolio value
type ValueSnapshot struct {
	Date           time.Time `json:"date"`
	PortfolioValue float64   `json:"portfolio_value"`
	Cash           float64   `json:"cash"`
}
