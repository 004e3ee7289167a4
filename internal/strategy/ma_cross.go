package strategy

import (
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/portfolio"
	"github.com/wonny/aegis-rotation/internal/selection"
	"github.com/wonny/aegis-rotation/internal/signals"
	"github.com/wonny/aegis-rotation/internal/strategyconfig"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// MovingAverageCross enters on a short/long SMA cross confirmed by RSI.
// entry: SMA_short > SMA_long && RSI > rsi_buy
// exit:  SMA_short < SMA_long && RSI < rsi_sell
// otherwise (including an undefined RSI) the current holding status is kept.
type MovingAverageCross struct {
	params strategyconfig.MACross
	sizer  *portfolio.Sizer
	topN   int
	logger *logger.Logger
}

// NewMovingAverageCross creates the MA cross variant
func NewMovingAverageCross(cfg *strategyconfig.Config, log *logger.Logger) *MovingAverageCross {
	return &MovingAverageCross{
		params: cfg.Strategy.MACross,
		sizer:  portfolio.NewSizer(cfg.Portfolio.PositionSize, cfg.Portfolio.MaxPositionSize),
		topN:   cfg.Strategy.TopNHoldings,
		logger: log,
	}
}

// Name implements contracts.Strategy
func (m *MovingAverageCross) Name() string {
	return strategyconfig.KindMACross
}

// Evaluate implements contracts.Strategy.
// Scores carry the SMA spread (SMA_short/SMA_long - 1); Eligible marks candidates.
func (m *MovingAverageCross) Evaluate(state contracts.PortfolioState, in contracts.EvaluationInput) (*contracts.Decision, error) {
	scores := make([]contracts.MomentumScore, 0, len(in.Universe))
	candidates := make([]selection.Candidate, 0, len(in.Universe))

	for _, sym := range in.Universe.Symbols() {
		series := in.Universe[sym]
		t, ok := series.IndexOf(in.Date)
		if !ok || t < m.params.LongWindow {
			continue
		}

		closes := series.Closes(t)
		short, okS := signals.SMA(closes, m.params.ShortWindow)
		long, okL := signals.SMA(closes, m.params.LongWindow)
		if !okS || !okL || !contracts.ValidPrice(long) {
			continue
		}
		// flat RSI window: neither entry nor exit can fire
		rsi, okR := signals.RSI(closes, m.params.RSIPeriod)

		spread := short/long - 1
		held := state.Holds(sym)

		var keep bool
		switch {
		case okR && short > long && rsi > m.params.RSIBuy:
			keep = true
		case okR && short < long && rsi < m.params.RSISell:
			keep = false
		default:
			keep = held
		}

		scores = append(scores, contracts.MomentumScore{
			Symbol:   sym,
			Date:     in.Date,
			Value:    spread,
			Eligible: keep,
		})
		if keep {
			candidates = append(candidates, selection.Candidate{Symbol: sym, Score: spread})
		}
	}

	selected := selection.Top(selection.Rank(candidates), m.topN)

	m.logger.WithFields(map[string]interface{}{
		"date":       in.Date.Format("2006-01-02"),
		"candidates": len(candidates),
		"selected":   len(selected),
	}).Debug("Evaluated moving average cross")

	return &contracts.Decision{
		Scores:   scores,
		Selected: selected,
		Targets:  m.sizer.Size(selected),
	}, nil
}
