package contracts

import "time"

// PerformanceMetrics are derived from the value and trade histories
type PerformanceMetrics struct {
	InitialCapital   float64 `json:"initial_capital"`
	FinalValue       float64 `json:"final_value"`
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"` // <= 0
	VaR95            float64 `json:"var_95"`       // 일간 손실, 양수
	CVaR95           float64 `json:"cvar_95"`
	TradingDays      int     `json:"trading_days"`

	TotalTrades  int     `json:"total_trades"`
	BuyTrades    int     `json:"buy_trades"`
	SellTrades   int     `json:"sell_trades"`
	WinRate      float64 `json:"win_rate"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	ProfitFactor float64 `json:"profit_factor"`
	TotalCosts   float64 `json:"total_costs"`
}

// Report is the final output of a backtest run
// ⭐ SSOT: 백테스트 결과는 이 타입으로만 외부에 노출
type Report struct {
	RunID      string    `json:"run_id,omitempty"`
	Strategy   string    `json:"strategy"`
	ConfigHash string    `json:"config_hash"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`

	PerformanceMetrics

	TradeHistory     []TradeRecord      `json:"trade_history"`
	RebalanceHistory []RebalanceEvent   `json:"rebalance_history"`
	ValueHistory     []ValueSnapshot    `json:"value_history"`
	FinalPositions   map[string]float64 `json:"final_positions"`
}

// ReportSummary is the list view of a stored report
type ReportSummary struct {
	RunID       string    `json:"run_id"`
	Strategy    string    `json:"strategy"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	TotalReturn float64   `json:"total_return"`
	SharpeRatio float64   `json:"sharpe_ratio"`
	MaxDrawdown float64   `json:"max_drawdown"`
	TotalTrades int       `json:"total_trades"`
}

// Summary extracts the list view
func (r *Report) Summary() ReportSummary {
	return ReportSummary{
		RunID:       r.RunID,
		Strategy:    r.Strategy,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		TotalReturn: r.TotalReturn,
		SharpeRatio: r.SharpeRatio,
		MaxDrawdown: r.MaxDrawdown,
		TotalTrades: r.TotalTrades,
	}
}
