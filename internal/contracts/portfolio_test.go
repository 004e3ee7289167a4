package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortfolioState_ValueAndWeights(t *testing.T) {
	p := NewPortfolioState(500)
	p.Holdings["AAA"] = Holding{Shares: 10, EntryPrice: 20, HighWaterMark: 25}
	p.Holdings["BBB"] = Holding{Shares: 5, EntryPrice: 40, HighWaterMark: 40}

	prices := map[string]float64{"AAA": 25, "BBB": 50}

	assert.InDelta(t, 500.0, p.MarketValue(prices), 1e-9)
	assert.InDelta(t, 1000.0, p.Value(prices), 1e-9)

	w := p.Weights(prices)
	assert.InDelta(t, 0.25, w["AAA"], 1e-12)
	assert.InDelta(t, 0.25, w["BBB"], 1e-12)
	assert.Equal(t, []string{"AAA", "BBB"}, p.Symbols())
	assert.True(t, p.Holds("AAA"))
	assert.False(t, p.Holds("CCC"))
}

func TestPortfolioState_CloneIsDeep(t *testing.T) {
	p := NewPortfolioState(100)
	p.Holdings["AAA"] = Holding{Shares: 1, EntryPrice: 10, HighWaterMark: 10}

	c := p.Clone()
	c.Cash = 0
	c.Holdings["AAA"] = Holding{Shares: 2}
	delete(c.Holdings, "AAA")
	c.Holdings["BBB"] = Holding{Shares: 3}

	assert.Equal(t, 100.0, p.Cash)
	assert.Equal(t, int64(1), p.Holdings["AAA"].Shares)
	assert.NotContains(t, p.Holdings, "BBB")
}

func TestPortfolioState_WeightsOfEmptyLedger(t *testing.T) {
	p := NewPortfolioState(0)
	assert.Empty(t, p.Weights(nil))
}

func TestTradeReason_IsRiskExit(t *testing.T) {
	assert.True(t, ReasonStopLoss.IsRiskExit())
	assert.True(t, ReasonTrailingStop.IsRiskExit())
	assert.False(t, ReasonRebalance.IsRiskExit())
}

func TestReport_Summary(t *testing.T) {
	r := &Report{RunID: "abc", Strategy: "momentum_rotation"}
	r.TotalReturn = 0.12
	r.TotalTrades = 7

	s := r.Summary()
	assert.Equal(t, "abc", s.RunID)
	assert.Equal(t, 0.12, s.TotalReturn)
	assert.Equal(t, 7, s.TotalTrades)
}
