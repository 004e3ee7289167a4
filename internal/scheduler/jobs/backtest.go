package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-rotation/internal/backtest"
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/strategyconfig"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// Runner runs one backtest
type Runner interface {
	Run(ctx context.Context, cfg *strategyconfig.Config, trigger string) (*contracts.Report, error)
}

// BacktestJob re-runs the configured strategy on a schedule
// ⭐ SSOT: 정기 백테스트는 이 작업에서만
type BacktestJob struct {
	runner     Runner
	reports    *backtest.ReportStore
	configPath string
	schedule   string
	logger     *logger.Logger
}

// NewBacktestJob creates a new backtest job.
// The strategy YAML is re-read on every run so edits take effect without a restart.
func NewBacktestJob(runner Runner, reports *backtest.ReportStore, configPath, schedule string, log *logger.Logger) *BacktestJob {
	return &BacktestJob{
		runner:     runner,
		reports:    reports,
		configPath: configPath,
		schedule:   schedule,
		logger:     log,
	}
}

// Name returns the job name
func (j *BacktestJob) Name() string {
	return "backtest"
}

// Schedule returns the cron schedule
func (j *BacktestJob) Schedule() string {
	return j.schedule
}

// Run loads the strategy file, runs it and stores the report
func (j *BacktestJob) Run(ctx context.Context) error {
	cfg, _, err := strategyconfig.Load(j.configPath)
	if err != nil {
		return fmt.Errorf("load strategy config: %w", err)
	}

	report, err := j.runner.Run(ctx, cfg, backtest.TriggerScheduler)
	if err != nil {
		return fmt.Errorf("scheduled backtest: %w", err)
	}

	j.reports.Put(report)

	j.logger.WithFields(map[string]interface{}{
		"run_id":       report.RunID,
		"strategy":     report.Strategy,
		"total_return": fmt.Sprintf("%.2f%%", report.TotalReturn*100),
		"sharpe_ratio": fmt.Sprintf("%.2f", report.SharpeRatio),
		"max_drawdown": fmt.Sprintf("%.2f%%", report.MaxDrawdown*100),
		"trades":       report.TotalTrades,
	}).Info("Scheduled backtest stored")

	return nil
}
