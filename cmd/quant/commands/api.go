package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rotation/internal/api"
	"github.com/wonny/aegis-rotation/internal/api/handlers"
	"github.com/wonny/aegis-rotation/internal/backtest"
	"github.com/wonny/aegis-rotation/internal/metrics"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 백테스트 실행/조회 엔드포인트 제공
- Prometheus 메트릭 노출

Endpoints:
  GET  /health               - Health check
  GET  /metrics              - Prometheus metrics
  POST /api/backtests        - 백테스트 실행
  GET  /api/backtests        - 리포트 목록
  GET  /api/backtests/{id}   - 리포트 조회

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
	apiMaxReports    int
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "정기 백테스트 스케줄러 함께 실행")
	apiCmd.Flags().IntVar(&apiMaxReports, "max-reports", 200, "메모리에 보관할 최대 리포트 수")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.logger.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Price store (+ cache)
	if err := a.openStore(ctx); err != nil {
		return err
	}

	// 2. Base strategy config; request bodies override it
	base, err := a.strategyConfig()
	if err != nil {
		return err
	}

	// 3. Metrics
	var reg *metrics.Registry
	if a.cfg.MetricsEnabled {
		reg = metrics.NewRegistry()
	}

	// 4. Runner, report store, handler
	runner := a.newRunner(reg)
	reports := backtest.NewReportStore(apiMaxReports)
	backtestHandler := handlers.NewBacktestHandler(runner, reports, base, a.logger)

	// 5. Optional scheduler sharing the same report store
	if apiWithScheduler {
		sched, err := newScheduler(a, runner, reports)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 6. Router + server
	router := api.NewRouter(backtestHandler, reg, a.db, a.logger)
	server := api.New(a.cfg, a.logger, router)

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	// Graceful shutdown with timeout
	if err := server.Run(ctx, 30*time.Second); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	a.logger.Info("Server stopped")
	return nil
}
