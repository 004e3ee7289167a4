package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rotation/internal/backtest"
	"github.com/wonny/aegis-rotation/internal/scheduler"
	"github.com/wonny/aegis-rotation/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 백테스트 스케줄러를 시작하거나 작업을 즉시 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler run backtest`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- backtest: BACKTEST_CRON (기본: 평일 18:00)
- report_prune: 매일 03:00 (보관 기간 지난 리포트 정리)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	reportRetention time.Duration
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().DurationVar(&reportRetention, "retention", 7*24*time.Hour, "리포트 보관 기간")
}

// newScheduler registers the backtest and prune jobs
func newScheduler(a *app, runner jobs.Runner, reports *backtest.ReportStore) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.logger)

	path := strategyFile
	if path == "" {
		path = a.cfg.StrategyConfigPath
	}

	if err := sched.AddJob(jobs.NewBacktestJob(runner, reports, path, a.cfg.BacktestCron, a.logger)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewReportPruneJob(reports, reportRetention, a.logger)); err != nil {
		return nil, err
	}
	return sched, nil
}

func initScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	a, err := loadApp()
	if err != nil {
		return nil, nil, err
	}
	if err := a.openStore(cmd.Context()); err != nil {
		a.Close()
		return nil, nil, err
	}

	reports := backtest.NewReportStore(0)
	sched, err := newScheduler(a, a.newRunner(nil), reports)
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("init scheduler: %w", err)
	}
	return a, sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// Start scheduler
	sched.Start()

	w := cmd.OutOrStdout()
	PrintSuccess(w, "Scheduler started successfully")
	fmt.Fprintln(w, "\nRegistered jobs:")
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		fmt.Fprintf(w, "  - %s (%s)\n", name, stats[name].Schedule)
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	jobName := args[0]
	result, err := sched.RunJob(jobName)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !result.Success {
		PrintError(fmt.Sprintf("Job %s failed: %s", jobName, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(w, fmt.Sprintf("Job %s completed in %.2fs", jobName, result.Duration.Seconds()))
	return nil
}
