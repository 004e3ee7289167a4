package risk

import (
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// =============================================================================
// Risk Controller - 매 바 손절/트레일링 스탑 판정 (순수 계산)
// =============================================================================

// Exit is a forced liquidation decided by the controller
type Exit struct {
	Symbol           string                `json:"symbol"`
	Reason           contracts.TradeReason `json:"reason"`
	Close            float64               `json:"close"`
	EntryPrice       float64               `json:"entry_price"`
	HighWaterMark    float64               `json:"high_water_mark"`
	ReturnFromEntry  float64               `json:"return_from_entry"`
	DrawdownFromHigh float64               `json:"drawdown_from_high"`
}

// Assessment is the controller's answer for one bar.
// Marks carries the ratcheted high-water mark of every evaluated holding.
type Assessment struct {
	Marks map[string]float64
	Exits []Exit
}

// Exited reports whether symbol is forced out on this bar
func (a Assessment) Exited(symbol string) bool {
	for _, e := range a.Exits {
		if e.Symbol == symbol {
			return true
		}
	}
	return false
}

// ExitedSymbols returns exited symbols in evaluation order
func (a Assessment) ExitedSymbols() []string {
	symbols := make([]string, len(a.Exits))
	for i, e := range a.Exits {
		symbols[i] = e.Symbol
	}
	return symbols
}

// epsilon keeps thresholds inclusive under float rounding (90/100-1 > -0.10)
const epsilon = 1e-12

// Controller evaluates stop-loss and trailing-stop on every bar
// ⭐ SSOT: 원장은 절대 수정하지 않음 (execution.Simulator만 수정)
type Controller struct {
	stopLossPct     float64 // < 0
	trailingStopPct float64 // > 0
	logger          *logger.Logger
}

// NewController creates a risk controller
func NewController(stopLossPct, trailingStopPct float64, log *logger.Logger) *Controller {
	return &Controller{
		stopLossPct:     stopLossPct,
		trailingStopPct: trailingStopPct,
		logger:          log,
	}
}

// Evaluate checks every held position that has a close on this bar, in symbol order.
// Stop-loss is checked first and wins when both trigger.
func (c *Controller) Evaluate(state contracts.PortfolioState, closes map[string]float64) Assessment {
	assessment := Assessment{Marks: make(map[string]float64)}

	for _, sym := range state.Symbols() {
		h := state.Holdings[sym]
		if h.Shares <= 0 {
			continue
		}
		price, ok := closes[sym]
		if !ok || !contracts.ValidPrice(price) {
			continue
		}

		hwm := h.HighWaterMark
		if price > hwm {
			hwm = price
		}
		assessment.Marks[sym] = hwm

		fromEntry := 0.0
		if h.EntryPrice > 0 {
			fromEntry = price/h.EntryPrice - 1
		}
		fromHigh := 0.0
		if hwm > 0 {
			fromHigh = price/hwm - 1
		}

		var reason contracts.TradeReason
		switch {
		case h.EntryPrice > 0 && fromEntry <= c.stopLossPct+epsilon:
			reason = contracts.ReasonStopLoss
		case hwm > 0 && fromHigh <= -c.trailingStopPct+epsilon:
			reason = contracts.ReasonTrailingStop
		default:
			continue
		}

		exit := Exit{
			Symbol:           sym,
			Reason:           reason,
			Close:            price,
			EntryPrice:       h.EntryPrice,
			HighWaterMark:    hwm,
			ReturnFromEntry:  fromEntry,
			DrawdownFromHigh: fromHigh,
		}
		assessment.Exits = append(assessment.Exits, exit)

		c.logger.WithFields(map[string]interface{}{
			"symbol":      sym,
			"reason":      string(reason),
			"close":       price,
			"entry_price": h.EntryPrice,
			"hwm":         hwm,
		}).Info("Risk exit triggered")
	}

	return assessment
}
