package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/aegis-rotation/internal/audit"
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/execution"
	"github.com/wonny/aegis-rotation/internal/portfolio"
	"github.com/wonny/aegis-rotation/internal/rebalance"
	"github.com/wonny/aegis-rotation/internal/risk"
	"github.com/wonny/aegis-rotation/internal/strategy"
	"github.com/wonny/aegis-rotation/internal/strategyconfig"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// Engine runs backtesting simulations
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	cfg        *strategyconfig.Config
	configHash string
	startDate  time.Time
	endDate    time.Time

	strategy  contracts.Strategy
	calendar  contracts.TradingCalendar
	risk      *risk.Controller
	simulator *execution.Simulator
	logger    *logger.Logger
}

// NewEngine validates cfg and wires the per-bar components.
// Any configuration error is returned here, before a single bar runs.
func NewEngine(cfg *strategyconfig.Config, cal contracts.TradingCalendar, log *logger.Logger) (*Engine, error) {
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, fmt.Errorf("trading calendar is required")
	}

	cfg = cfg.Clone()

	strat, err := strategy.New(cfg, log)
	if err != nil {
		return nil, err
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash config: %w", err)
	}

	// Validate already checked both dates
	start, _ := cfg.StartDate()
	end, _ := cfg.EndDate()

	for _, w := range strategyconfig.Warn(cfg) {
		log.WithFields(map[string]interface{}{
			"code":    w.Code,
			"message": w.Message,
		}).Warn("Strategy config warning")
	}

	return &Engine{
		cfg:        cfg,
		configHash: hash,
		startDate:  start,
		endDate:    end,
		strategy:   strat,
		calendar:   cal,
		risk:       risk.NewController(cfg.Risk.StopLossPct, cfg.Risk.TrailingStopPct, log),
		simulator: execution.NewSimulator(execution.Config{
			TransactionCost: cfg.Costs.TransactionCost,
			MinCashBuffer:   cfg.Portfolio.MinCashBuffer,
		}, log),
		logger: log,
	}, nil
}

// ConfigHash returns the SHA-256 of the validated config
func (e *Engine) ConfigHash() string {
	return e.configHash
}

// Run simulates every trading day in the configured range.
// Bars before start_date are still visible to the strategy as lookback history.
func (e *Engine) Run(ctx context.Context, universe contracts.Universe) (*contracts.Report, error) {
	started := time.Now()
	clean := e.cleanUniverse(universe)

	dates := make([]time.Time, 0)
	for _, d := range clean.Dates(e.startDate, e.endDate) {
		if e.calendar.IsTradingDay(d) {
			dates = append(dates, d)
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"strategy":        e.strategy.Name(),
		"symbols":         len(clean),
		"bars":            len(dates),
		"initial_capital": e.cfg.Portfolio.InitialCapital,
		"rebalance_freq":  e.cfg.Rebalance.Freq,
	}).Info("Starting backtest")

	schedule, err := rebalance.NewSchedule(rebalance.Frequency(e.cfg.Rebalance.Freq))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", strategyconfig.ErrInvalidConfig, err)
	}

	run := &runState{
		state:      contracts.NewPortfolioState(e.cfg.Portfolio.InitialCapital),
		lastCloses: make(map[string]float64),
		trades:     make([]contracts.TradeRecord, 0),
		rebalances: make([]contracts.RebalanceEvent, 0),
		snapshots:  make([]contracts.ValueSnapshot, 0, len(dates)),
	}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest interrupted at %s: %w", date.Format(strategyconfig.DateLayout), err)
		}
		if err := e.step(run, schedule, clean, date); err != nil {
			return nil, err
		}
	}

	report := e.buildReport(run, dates)

	e.logger.WithFields(map[string]interface{}{
		"duration_ms":  time.Since(started).Milliseconds(),
		"trading_days": report.TradingDays,
		"rebalances":   len(report.RebalanceHistory),
		"trades":       report.TotalTrades,
		"total_return": fmt.Sprintf("%.2f%%", report.TotalReturn*100),
		"sharpe_ratio": fmt.Sprintf("%.2f", report.SharpeRatio),
		"max_drawdown": fmt.Sprintf("%.2f%%", report.MaxDrawdown*100),
	}).Info("Backtest completed")

	return report, nil
}

// runState is everything that changes while the loop advances
type runState struct {
	state      contracts.PortfolioState
	lastCloses map[string]float64
	trades     []contracts.TradeRecord
	rebalances []contracts.RebalanceEvent
	snapshots  []contracts.ValueSnapshot
}

// step processes one bar.
// 순서: 리스크 평가 → 강제 청산 → 스케줄 확인 → 전략 평가 → 리밸런싱 → 스냅샷
func (e *Engine) step(run *runState, schedule *rebalance.Schedule, universe contracts.Universe, date time.Time) error {
	closes := universe.ClosesOn(date)
	for sym, c := range closes {
		if contracts.ValidPrice(c) {
			run.lastCloses[sym] = c
		}
	}
	prices := execution.Prices{Close: closes, Last: run.lastCloses}

	// 1. Risk controller runs first on every bar
	assessment := e.risk.Evaluate(run.state, closes)
	run.state = e.simulator.ApplyMarks(run.state, assessment.Marks)

	if len(assessment.Exits) > 0 {
		exits := make([]execution.ForcedExit, len(assessment.Exits))
		for i, x := range assessment.Exits {
			exits[i] = execution.ForcedExit{Symbol: x.Symbol, Reason: x.Reason}
		}

		var result *execution.ExecutionResult
		run.state, result = e.simulator.Liquidate(run.state, exits, prices, date)
		run.trades = append(run.trades, result.Trades()...)

		e.logger.WithFields(map[string]interface{}{
			"date":    date.Format(strategyconfig.DateLayout),
			"symbols": assessment.ExitedSymbols(),
			"skipped": len(result.Skipped()),
		}).Info("Risk exits executed")
	}

	// 2. Scheduled evaluation
	if schedule.Due(date) {
		decision, err := e.strategy.Evaluate(run.state, contracts.EvaluationInput{
			Date:     date,
			Universe: universe,
		})
		if err != nil {
			return fmt.Errorf("strategy %s on %s: %w", e.strategy.Name(), date.Format(strategyconfig.DateLayout), err)
		}

		sinceLast := -1
		if last, ok := schedule.LastRebalance(); ok {
			sinceLast = rebalance.CalendarDaysBetween(last, date)
		}

		event, result := e.applyDecision(run, decision, assessment, prices, date)
		schedule.MarkDone(date)
		run.rebalances = append(run.rebalances, event)

		e.logger.WithFields(map[string]interface{}{
			"date":            date.Format(strategyconfig.DateLayout),
			"days_since_last": sinceLast,
			"selected":        event.SelectedAssets,
			"target_weight":   portfolio.TotalWeight(event.TargetWeights),
			"scored":          len(event.MomentumScores),
			"skipped":         len(event.Skipped),
			"orders_skipped":  len(result.Skipped()),
		}).Info("Rebalanced")
	}

	// 3. End-of-bar snapshot
	run.snapshots = append(run.snapshots, contracts.ValueSnapshot{
		Date:           date,
		PortfolioValue: run.state.Value(prices.ValuationMap()),
		Cash:           run.state.Cash,
	})

	e.logger.WithFields(map[string]interface{}{
		"date":  date.Format(strategyconfig.DateLayout),
		"value": run.snapshots[len(run.snapshots)-1].PortfolioValue,
		"cash":  run.state.Cash,
	}).Debug("Bar closed")

	return nil
}

// applyDecision drops symbols forced out on this bar, then trades toward the rest.
// A risk exit is not re-entered until the next scheduled evaluation.
func (e *Engine) applyDecision(run *runState, decision *contracts.Decision, assessment risk.Assessment, prices execution.Prices, date time.Time) (contracts.RebalanceEvent, *execution.ExecutionResult) {
	targets := make(map[string]float64, len(decision.Targets))
	skipped := make([]string, 0)
	for sym, w := range decision.Targets {
		if assessment.Exited(sym) {
			skipped = append(skipped, sym)
			continue
		}
		targets[sym] = w
	}

	selected := make([]string, 0, len(decision.Selected))
	for _, sym := range decision.Selected {
		if !assessment.Exited(sym) {
			selected = append(selected, sym)
		}
	}

	var result *execution.ExecutionResult
	run.state, result = e.simulator.Rebalance(run.state, targets, prices, date)
	run.trades = append(run.trades, result.Trades()...)

	scores := decision.Scores
	if scores == nil {
		scores = make([]contracts.MomentumScore, 0)
	}

	event := contracts.RebalanceEvent{
		Date:           date,
		MomentumScores: scores,
		SelectedAssets: selected,
		TargetWeights:  targets,
	}
	if len(skipped) > 0 {
		sort.Strings(skipped)
		event.Skipped = skipped
	}
	return event, result
}

// buildReport runs the analyzer over the histories
func (e *Engine) buildReport(run *runState, dates []time.Time) *contracts.Report {
	metrics := audit.Analyze(run.snapshots, run.trades, e.cfg.Portfolio.InitialCapital)

	report := &contracts.Report{
		Strategy:           e.strategy.Name(),
		ConfigHash:         e.configHash,
		StartDate:          e.startDate,
		EndDate:            e.endDate,
		PerformanceMetrics: metrics,
		TradeHistory:       run.trades,
		RebalanceHistory:   run.rebalances,
		ValueHistory:       run.snapshots,
		FinalPositions:     run.state.Weights(run.lastCloses),
	}
	if len(dates) > 0 {
		report.StartDate = dates[0]
		report.EndDate = dates[len(dates)-1]
	}
	return report
}

// cleanUniverse drops series that cannot be simulated; the run continues without them
func (e *Engine) cleanUniverse(universe contracts.Universe) contracts.Universe {
	clean := make(contracts.Universe, len(universe))
	for _, sym := range universe.Symbols() {
		series := universe[sym]
		if err := series.Validate(); err != nil {
			e.logger.WithError(err).WithField("symbol", sym).Warn("Dropping invalid series")
			continue
		}
		if series.Len() == 0 {
			e.logger.WithField("symbol", sym).Warn("Series is empty")
		}
		clean[sym] = series
	}
	return clean
}
