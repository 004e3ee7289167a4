package audit

import (
	"math"

	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/risk"
)

// TradingDaysPerYear is the annualization factor
const TradingDaysPerYear = 252

// Analyze derives performance metrics from the value and trade histories
// ⭐ SSOT: 성과 지표 계산은 여기서만 (순수 함수)
func Analyze(snapshots []contracts.ValueSnapshot, trades []contracts.TradeRecord, initialCapital float64) contracts.PerformanceMetrics {
	m := contracts.PerformanceMetrics{
		InitialCapital: initialCapital,
		FinalValue:     initialCapital,
		TradingDays:    len(snapshots),
	}

	if len(snapshots) > 0 {
		first := snapshots[0].PortfolioValue
		last := snapshots[len(snapshots)-1].PortfolioValue
		m.FinalValue = last

		if first > 0 {
			m.TotalReturn = last/first - 1
			m.AnnualizedReturn = annualize(m.TotalReturn, len(snapshots))
		}

		returns := DailyReturns(snapshots)
		m.Volatility = risk.StdDev(returns) * math.Sqrt(TradingDaysPerYear)
		m.SharpeRatio = ratio(m.AnnualizedReturn, m.Volatility)

		downside := risk.DownsideDeviation(returns) * math.Sqrt(TradingDaysPerYear)
		m.SortinoRatio = ratio(m.AnnualizedReturn, downside)

		m.MaxDrawdown = MaxDrawdown(DrawdownSeries(snapshots))

		v := risk.CalculateVaR(returns, 0.95)
		m.VaR95 = v.VaR
		m.CVaR95 = v.CVaR
	}

	applyTradeStats(&m, trades)
	return m
}

// DailyReturns returns the pct-change of portfolio value between consecutive bars
func DailyReturns(snapshots []contracts.ValueSnapshot) []float64 {
	if len(snapshots) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(snapshots)-1)
	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].PortfolioValue
		if prev <= 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, snapshots[i].PortfolioValue/prev-1)
	}
	return returns
}

// DrawdownSeries returns V/running_max(V) - 1 for every bar
func DrawdownSeries(snapshots []contracts.ValueSnapshot) []float64 {
	series := make([]float64, len(snapshots))
	peak := 0.0
	for i, s := range snapshots {
		if s.PortfolioValue > peak {
			peak = s.PortfolioValue
		}
		if peak > 0 {
			series[i] = s.PortfolioValue/peak - 1
		}
	}
	return series
}

// MaxDrawdown returns the minimum of a drawdown series (<= 0)
func MaxDrawdown(drawdowns []float64) float64 {
	maxDD := 0.0
	for _, dd := range drawdowns {
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// annualize converts return to annualized return
func annualize(totalReturn float64, days int) float64 {
	if days == 0 || totalReturn <= -1 {
		return 0
	}
	return math.Pow(1.0+totalReturn, TradingDaysPerYear/float64(days)) - 1.0
}

func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// applyTradeStats fills counts, costs and the realized-trade statistics.
// Win rate = sells with positive realized return / all sells.
func applyTradeStats(m *contracts.PerformanceMetrics, trades []contracts.TradeRecord) {
	var wins, losses int
	var sumWin, sumLoss float64

	for _, t := range trades {
		m.TotalTrades++
		m.TotalCosts += t.Cost

		if t.Action == contracts.ActionBuy {
			m.BuyTrades++
			continue
		}

		m.SellTrades++
		switch {
		case t.RealizedReturn > 0:
			wins++
			sumWin += t.RealizedPnL
		case t.RealizedReturn < 0:
			losses++
			sumLoss += t.RealizedPnL
		}
	}

	if m.SellTrades > 0 {
		m.WinRate = float64(wins) / float64(m.SellTrades)
	}
	if wins > 0 {
		m.AvgWin = sumWin / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = sumLoss / float64(losses)
	}
	if sumLoss < 0 {
		m.ProfitFactor = sumWin / math.Abs(sumLoss)
	}
}
