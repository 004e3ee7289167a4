package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rotation/internal/backtest"
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/strategyconfig"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스팅 프레임워크",
	Long: `과거 데이터로 로테이션 전략을 시뮬레이션합니다.

백테스팅은 다음을 산출합니다:
- 전략 수익률 (총/연환산)
- 리스크 지표 (Sharpe, Sortino, MDD, VaR)
- 승률 및 거래 비용
- 리밸런싱/거래 이력

Example:
  go run ./cmd/quant backtest run --strategy config/strategy/momentum_rotation.yaml
  go run ./cmd/quant backtest run --from 2023-01-01 --to 2023-12-31 --symbols 510300,510500
  go run ./cmd/quant backtest validate --strategy config/strategy/ma_cross.yaml`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `전략 YAML을 읽어 백테스트를 실행합니다.

Flags:
  --from      시작 날짜 (YYYY-MM-DD, universe.start_date 덮어쓰기)
  --to        종료 날짜 (YYYY-MM-DD, universe.end_date 덮어쓰기)
  --symbols   종목 목록 (쉼표 구분, universe.symbols 덮어쓰기)
  --json      리포트를 JSON으로 출력
  --out       JSON 리포트를 파일로 저장`,
		RunE: runBacktest,
	}

	backtestValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "전략 설정 검증",
		RunE:  validateStrategy,
	}

	// Flags
	backtestFrom    string
	backtestTo      string
	backtestSymbols string
	backtestJSON    bool
	backtestOut     string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestValidateCmd)

	// Flags
	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "종료 날짜 (YYYY-MM-DD)")
	backtestRunCmd.Flags().StringVar(&backtestSymbols, "symbols", "", "종목 목록 (쉼표 구분)")
	backtestRunCmd.Flags().BoolVar(&backtestJSON, "json", false, "JSON 출력")
	backtestRunCmd.Flags().StringVar(&backtestOut, "out", "", "JSON 리포트 저장 경로")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.strategyConfig()
	if err != nil {
		return err
	}
	applyBacktestOverrides(cfg)

	if err := a.openStore(cmd.Context()); err != nil {
		return err
	}

	report, err := a.newRunner(nil).Run(cmd.Context(), cfg, backtest.TriggerCLI)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	if backtestOut != "" {
		if err := writeReportFile(backtestOut, report); err != nil {
			return err
		}
		a.logger.WithField("path", backtestOut).Info("Report saved")
	}

	if backtestJSON {
		return writeReportJSON(cmd.OutOrStdout(), report)
	}

	printBacktestReport(cmd.OutOrStdout(), report)
	return nil
}

// applyBacktestOverrides lets flags replace the universe section of the YAML
func applyBacktestOverrides(cfg *strategyconfig.Config) {
	if backtestFrom != "" {
		cfg.Universe.StartDate = backtestFrom
	}
	if backtestTo != "" {
		cfg.Universe.EndDate = backtestTo
	}
	if backtestSymbols != "" {
		symbols := make([]string, 0)
		for _, s := range strings.Split(backtestSymbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, s)
			}
		}
		cfg.Universe.Symbols = symbols
	}
}

func validateStrategy(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.strategyConfig()
	if err != nil {
		return err
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return fmt.Errorf("hash config: %w", err)
	}

	w := cmd.OutOrStdout()
	PrintSuccess(w, fmt.Sprintf("%s config is valid", cfg.Strategy.Kind))
	PrintKeyValue(w, "Config hash", hash, 12)

	warnings := strategyconfig.Warn(cfg)
	for _, warning := range warnings {
		PrintWarning(w, fmt.Sprintf("[%s] %s", warning.Code, warning.Message))
	}
	return nil
}

func writeReportJSON(w io.Writer, report *contracts.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeReportFile(path string, report *contracts.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := writeReportJSON(f, report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func printBacktestReport(w io.Writer, r *contracts.Report) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  Backtest Completed: %s\n", r.Strategy)
	PrintSeparator(w)

	// Summary
	fmt.Fprintln(w, "📊 Summary")
	PrintKeyValue(w, "Run ID", r.RunID, 16)
	PrintKeyValue(w, "Period", fmt.Sprintf("%s ~ %s (%d trading days)",
		r.StartDate.Format(time.DateOnly), r.EndDate.Format(time.DateOnly), r.TradingDays), 16)
	PrintKeyValue(w, "Rebalances", fmt.Sprintf("%d", len(r.RebalanceHistory)), 16)
	PrintKeyValue(w, "Config hash", shortHash(r.ConfigHash), 16)
	fmt.Fprintln(w)

	// Performance
	fmt.Fprintln(w, "💰 Performance")
	PrintKeyValue(w, "Initial Capital", formatMoney(r.InitialCapital), 16)
	PrintKeyValue(w, "Final Value", formatMoney(r.FinalValue), 16)
	PrintKeyValue(w, "Total Return", formatPct(r.TotalReturn), 16)
	PrintKeyValue(w, "Annual Return", formatPct(r.AnnualizedReturn), 16)
	PrintKeyValue(w, "Volatility", formatPct(r.Volatility), 16)
	fmt.Fprintln(w)

	// Risk Metrics
	fmt.Fprintln(w, "📉 Risk Metrics")
	PrintKeyValue(w, "Sharpe Ratio", fmt.Sprintf("%.2f", r.SharpeRatio), 16)
	PrintKeyValue(w, "Sortino Ratio", fmt.Sprintf("%.2f", r.SortinoRatio), 16)
	PrintKeyValue(w, "Max Drawdown", formatPct(r.MaxDrawdown), 16)
	PrintKeyValue(w, "VaR 95%", formatPct(r.VaR95), 16)
	PrintKeyValue(w, "CVaR 95%", formatPct(r.CVaR95), 16)
	fmt.Fprintln(w)

	// Trading Metrics
	fmt.Fprintln(w, "💹 Trading Metrics")
	PrintKeyValue(w, "Total Trades", fmt.Sprintf("%d (buy %d / sell %d)", r.TotalTrades, r.BuyTrades, r.SellTrades), 16)
	PrintKeyValue(w, "Win Rate", formatPct(r.WinRate), 16)
	PrintKeyValue(w, "Profit Factor", fmt.Sprintf("%.2f", r.ProfitFactor), 16)
	PrintKeyValue(w, "Total Costs", formatMoney(r.TotalCosts), 16)
	fmt.Fprintln(w)

	// Final positions
	if len(r.FinalPositions) > 0 {
		fmt.Fprintln(w, "📦 Final Positions")
		widths := []int{12, 10}
		PrintTableHeader(w, []string{"Symbol", "Weight"}, widths)
		for _, sym := range sortedKeys(r.FinalPositions) {
			PrintTableRow(w, []string{sym, formatPct(r.FinalPositions[sym])}, widths)
		}
		fmt.Fprintln(w)
	}

	// Equity curve (last 10 points)
	fmt.Fprintln(w, "📈 Equity Curve (Last 10 Days)")
	startIdx := len(r.ValueHistory) - 10
	if startIdx < 0 {
		startIdx = 0
	}
	for _, point := range r.ValueHistory[startIdx:] {
		fmt.Fprintf(w, "   %s: %s\n", point.Date.Format(time.DateOnly), formatMoney(point.PortfolioValue))
	}
	fmt.Fprintln(w)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
