package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

var today = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func newSimulator() *Simulator {
	return NewSimulator(Config{TransactionCost: 0.001, MinCashBuffer: 0.05}, logger.Nop())
}

func closes(m map[string]float64) Prices {
	return Prices{Close: m, Last: m}
}

func TestRebalance_FromCash(t *testing.T) {
	state := contracts.NewPortfolioState(1_000_000)

	next, res := newSimulator().Rebalance(state,
		map[string]float64{"AAA": 0.4, "BBB": 0.4},
		closes(map[string]float64{"AAA": 100, "BBB": 50}), today)

	trades := res.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, "AAA", trades[0].Symbol)
	assert.Equal(t, int64(4000), trades[0].Quantity)
	assert.InDelta(t, 400.0, trades[0].Cost, 1e-9)
	assert.Equal(t, "BBB", trades[1].Symbol)
	assert.Equal(t, int64(8000), trades[1].Quantity)

	assert.InDelta(t, 199_200.0, next.Cash, 1e-6)
	assert.Equal(t, contracts.Holding{Shares: 4000, EntryPrice: 100, HighWaterMark: 100}, next.Holdings["AAA"])

	// input untouched
	assert.Equal(t, 1_000_000.0, state.Cash)
	assert.Empty(t, state.Holdings)
}

func TestRebalance_SellsUntargetedBeforeBuying(t *testing.T) {
	state := contracts.NewPortfolioState(0)
	state.Holdings["AAA"] = contracts.Holding{Shares: 1000, EntryPrice: 100, HighWaterMark: 110}

	next, res := newSimulator().Rebalance(state,
		map[string]float64{"BBB": 0.5},
		closes(map[string]float64{"AAA": 110, "BBB": 20}), today)

	trades := res.Trades()
	require.Len(t, trades, 2)

	sell := trades[0]
	assert.Equal(t, contracts.ActionSell, sell.Action)
	assert.Equal(t, int64(1000), sell.Quantity)
	assert.InDelta(t, 110.0, sell.Cost, 1e-9)
	assert.InDelta(t, 9890.0, sell.RealizedPnL, 1e-9)
	assert.InDelta(t, 0.0989, sell.RealizedReturn, 1e-12)
	assert.Equal(t, contracts.ReasonRebalance, sell.Reason)

	buy := trades[1]
	assert.Equal(t, contracts.ActionBuy, buy.Action)
	assert.Equal(t, int64(2750), buy.Quantity)

	assert.NotContains(t, next.Holdings, "AAA")
	assert.InDelta(t, 54_835.0, next.Cash, 1e-6)
}

func TestRebalance_OrderingSellsThenBuysBySymbol(t *testing.T) {
	state := contracts.NewPortfolioState(0)
	state.Holdings["MMM"] = contracts.Holding{Shares: 100, EntryPrice: 10, HighWaterMark: 10}
	state.Holdings["ZZZ"] = contracts.Holding{Shares: 900, EntryPrice: 10, HighWaterMark: 10}

	next, res := newSimulator().Rebalance(state,
		map[string]float64{"AAA": 0.5, "ZZZ": 0.4},
		closes(map[string]float64{"AAA": 10, "MMM": 10, "ZZZ": 10}), today)

	trades := res.Trades()
	require.Len(t, trades, 3)
	assert.Equal(t, []string{"MMM", "ZZZ", "AAA"}, []string{trades[0].Symbol, trades[1].Symbol, trades[2].Symbol})
	assert.Equal(t, int64(500), trades[1].Quantity)
	assert.Equal(t, int64(500), trades[2].Quantity)

	assert.Equal(t, int64(400), next.Holdings["ZZZ"].Shares)
	assert.InDelta(t, 989.0, next.Cash, 1e-6)
}

func TestRebalance_TrimsOverweight(t *testing.T) {
	state := contracts.NewPortfolioState(500_000)
	state.Holdings["AAA"] = contracts.Holding{Shares: 5000, EntryPrice: 80, HighWaterMark: 100}

	next, res := newSimulator().Rebalance(state,
		map[string]float64{"AAA": 0.3},
		closes(map[string]float64{"AAA": 100}), today)

	trades := res.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, contracts.ActionSell, trades[0].Action)
	assert.Equal(t, int64(2000), trades[0].Quantity)
	assert.Equal(t, int64(3000), next.Holdings["AAA"].Shares)
	assert.Equal(t, 80.0, next.Holdings["AAA"].EntryPrice)
}

func TestRebalance_CapsBuyToCash(t *testing.T) {
	// BBB has no bar today and is valued at its last close
	state := contracts.NewPortfolioState(10_000)
	state.Holdings["BBB"] = contracts.Holding{Shares: 100, EntryPrice: 900, HighWaterMark: 900}

	prices := Prices{
		Close: map[string]float64{"AAA": 100},
		Last:  map[string]float64{"AAA": 100, "BBB": 900},
	}

	next, res := newSimulator().Rebalance(state, map[string]float64{"AAA": 0.5, "BBB": 0.9}, prices, today)

	trades := res.Trades()
	require.Len(t, trades, 1)
	// floor((10000 - 0.05×100000) / (100 × 1.001)) = 49
	assert.Equal(t, int64(49), trades[0].Quantity)
	assert.InDelta(t, 5095.1, next.Cash, 1e-6)
	assert.GreaterOrEqual(t, next.Cash, 0.0)
}

func TestRebalance_SkipsWhenCapIsZero(t *testing.T) {
	state := contracts.NewPortfolioState(4_000)
	state.Holdings["BBB"] = contracts.Holding{Shares: 100, EntryPrice: 960, HighWaterMark: 960}

	prices := Prices{
		Close: map[string]float64{"AAA": 100},
		Last:  map[string]float64{"AAA": 100, "BBB": 960},
	}

	next, res := newSimulator().Rebalance(state, map[string]float64{"AAA": 0.5, "BBB": 0.96}, prices, today)

	assert.Empty(t, res.Trades())
	skipped := res.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, SkipInsufficientCash, skipped[0].SkipReason)
	assert.Equal(t, 4_000.0, next.Cash)
}

func TestRebalance_MissingPriceIsSkipped(t *testing.T) {
	state := contracts.NewPortfolioState(50_000)
	state.Holdings["OLD"] = contracts.Holding{Shares: 500, EntryPrice: 100, HighWaterMark: 100}

	prices := Prices{
		Close: map[string]float64{},
		Last:  map[string]float64{"OLD": 100, "NEW": 10},
	}

	next, res := newSimulator().Rebalance(state, map[string]float64{"NEW": 0.4}, prices, today)

	assert.Empty(t, res.Trades())
	skipped := res.Skipped()
	require.Len(t, skipped, 2)
	assert.Equal(t, "OLD", skipped[0].Order.Symbol)
	assert.Equal(t, SkipNoPrice, skipped[0].SkipReason)
	assert.Equal(t, "NEW", skipped[1].Order.Symbol)

	assert.Equal(t, int64(500), next.Holdings["OLD"].Shares)
	assert.Equal(t, 50_000.0, next.Cash)
}

func TestRebalance_IgnoresSmallDifferences(t *testing.T) {
	state := contracts.NewPortfolioState(60_000)
	state.Holdings["AAA"] = contracts.Holding{Shares: 400, EntryPrice: 100, HighWaterMark: 100}

	next, res := newSimulator().Rebalance(state,
		map[string]float64{"AAA": 0.405},
		closes(map[string]float64{"AAA": 100}), today)

	assert.Empty(t, res.Fills)
	assert.Equal(t, state, next)
}

func TestRebalance_TopUpAveragesEntry(t *testing.T) {
	state := contracts.NewPortfolioState(30_000)
	state.Holdings["AAA"] = contracts.Holding{Shares: 100, EntryPrice: 80, HighWaterMark: 90}

	next, res := newSimulator().Rebalance(state,
		map[string]float64{"AAA": 0.75},
		closes(map[string]float64{"AAA": 100}), today)

	require.Len(t, res.Trades(), 1)
	h := next.Holdings["AAA"]
	assert.Equal(t, int64(300), h.Shares)
	assert.InDelta(t, 28_000.0/300, h.EntryPrice, 1e-9)
	assert.Equal(t, 100.0, h.HighWaterMark)
}

func TestRebalance_EmptyTargetsSellsEverything(t *testing.T) {
	state := contracts.NewPortfolioState(0)
	state.Holdings["AAA"] = contracts.Holding{Shares: 10, EntryPrice: 100, HighWaterMark: 100}

	next, res := newSimulator().Rebalance(state, map[string]float64{}, closes(map[string]float64{"AAA": 100}), today)

	require.Len(t, res.Trades(), 1)
	assert.Empty(t, next.Holdings)
	assert.InDelta(t, 999.0, next.Cash, 1e-9)
}

func TestLiquidate(t *testing.T) {
	state := contracts.NewPortfolioState(0)
	state.Holdings["AAA"] = contracts.Holding{Shares: 50, EntryPrice: 100, HighWaterMark: 100}

	next, res := newSimulator().Liquidate(state,
		[]ForcedExit{{Symbol: "AAA", Reason: contracts.ReasonStopLoss}},
		closes(map[string]float64{"AAA": 85}), today)

	trades := res.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, contracts.ReasonStopLoss, trades[0].Reason)
	assert.Equal(t, int64(50), trades[0].Quantity)
	assert.InDelta(t, 4.25, trades[0].Cost, 1e-9)
	assert.InDelta(t, -754.25, trades[0].RealizedPnL, 1e-9)
	assert.InDelta(t, -0.15085, trades[0].RealizedReturn, 1e-12)
	assert.Equal(t, today, trades[0].Date)

	assert.Empty(t, next.Holdings)
	assert.InDelta(t, 4245.75, next.Cash, 1e-9)
	assert.Contains(t, state.Holdings, "AAA")
}

func TestLiquidate_NoPosition(t *testing.T) {
	state := contracts.NewPortfolioState(100)
	_, res := newSimulator().Liquidate(state,
		[]ForcedExit{{Symbol: "AAA", Reason: contracts.ReasonTrailingStop}},
		closes(map[string]float64{"AAA": 85}), today)

	require.Len(t, res.Skipped(), 1)
	assert.Equal(t, SkipNoPosition, res.Skipped()[0].SkipReason)
}

func TestApplyMarks(t *testing.T) {
	state := contracts.NewPortfolioState(0)
	state.Holdings["AAA"] = contracts.Holding{Shares: 1, EntryPrice: 100, HighWaterMark: 105}

	next := newSimulator().ApplyMarks(state, map[string]float64{"AAA": 110, "ZZZ": 5})

	assert.Equal(t, 110.0, next.Holdings["AAA"].HighWaterMark)
	assert.NotContains(t, next.Holdings, "ZZZ")
	assert.Equal(t, 105.0, state.Holdings["AAA"].HighWaterMark)

	// never lowers
	again := newSimulator().ApplyMarks(next, map[string]float64{"AAA": 90})
	assert.Equal(t, 110.0, again.Holdings["AAA"].HighWaterMark)
}

func TestPrices_Valuation(t *testing.T) {
	p := Prices{Close: map[string]float64{"AAA": 11}, Last: map[string]float64{"AAA": 10, "BBB": 20}}

	assert.Equal(t, 11.0, p.Valuation("AAA"))
	assert.Equal(t, 20.0, p.Valuation("BBB"))

	_, ok := p.Executable("BBB")
	assert.False(t, ok)

	assert.Equal(t, map[string]float64{"AAA": 11, "BBB": 20}, p.ValuationMap())
}
