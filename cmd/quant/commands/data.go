package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-rotation/internal/calendar"
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/data"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "가격 데이터 관리",
	Long: `가격 저장소를 점검하거나 복사합니다.

Subcommands:
  check   - 종목별 데이터 커버리지 점검
  copy    - SQLite → PostgreSQL 복사

Example:
  go run ./cmd/quant data check --store sqlite
  go run ./cmd/quant data copy`,
}

var (
	dataCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "데이터 커버리지 점검",
		Long: `전략 설정의 기간과 휴장일 기준으로 종목별 커버리지를 계산합니다.
커버리지가 --min-ratio 미만인 종목이 있으면 실패합니다.`,
		RunE: runDataCheck,
	}

	dataCopyCmd = &cobra.Command{
		Use:   "copy",
		Short: "SQLite → PostgreSQL 복사",
		RunE:  runDataCopy,
	}

	dataMinRatio float64
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataCheckCmd)
	dataCmd.AddCommand(dataCopyCmd)

	dataCheckCmd.Flags().Float64Var(&dataMinRatio, "min-ratio", 0.95, "최소 커버리지 비율")
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.strategyConfig()
	if err != nil {
		return err
	}
	if err := a.openStore(cmd.Context()); err != nil {
		return err
	}

	symbols := cfg.Universe.Symbols
	if len(symbols) == 0 {
		lister, ok := a.store.(contracts.SymbolLister)
		if !ok {
			return fmt.Errorf("store cannot list symbols; set universe.symbols")
		}
		if symbols, err = lister.ListSymbols(cmd.Context()); err != nil {
			return fmt.Errorf("list symbols: %w", err)
		}
	}

	start, _ := cfg.StartDate()
	end, _ := cfg.EndDate()
	holidays, _ := cfg.HolidayDates()

	loader := data.NewLoader(a.store, a.cfg.LoaderConcurrency, a.cfg.LoaderRatePerSec, a.logger)
	universe, _, err := loader.Load(cmd.Context(), symbols, start, end)
	if err != nil {
		return fmt.Errorf("load series: %w", err)
	}

	cal := calendar.NewWeekdayCalendar(holidays)
	report := data.CheckCoverage(universe, cal, start, end)

	w := cmd.OutOrStdout()
	if !start.IsZero() && !end.IsZero() {
		PrintKeyValue(w, "Trading days", fmt.Sprintf("%d", cal.TradingDaysBetween(start, end)), 14)
		fmt.Fprintln(w)
	}
	widths := []int{12, 6, 10, 10, 8, 8, 8}
	PrintTableHeader(w, []string{"Symbol", "Bars", "First", "Last", "Missing", "Invalid", "Ratio"}, widths)

	failed := 0
	for _, c := range report {
		PrintTableRow(w, []string{
			c.Symbol,
			fmt.Sprintf("%d", c.Bars),
			formatDate(c.First),
			formatDate(c.Last),
			fmt.Sprintf("%d", c.MissingDays),
			fmt.Sprintf("%d", c.InvalidCloses),
			fmt.Sprintf("%.1f%%", c.Ratio*100),
		}, widths)
		if c.Ratio < dataMinRatio || c.InvalidCloses > 0 {
			failed++
		}
	}
	fmt.Fprintln(w)

	if failed > 0 {
		PrintError(fmt.Sprintf("%d/%d symbols below %.0f%% coverage", failed, len(report), dataMinRatio*100))
		return fmt.Errorf("coverage check failed for %d symbols", failed)
	}
	PrintSuccess(w, fmt.Sprintf("%d symbols passed coverage check", len(report)))
	return nil
}

func runDataCopy(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	src, err := a.openSQLite(ctx)
	if err != nil {
		return err
	}
	dst, err := a.openPostgres(ctx)
	if err != nil {
		return err
	}
	if err := dst.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	symbols, err := src.ListSymbols(ctx)
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}

	started := time.Now()
	total := 0
	for i, sym := range symbols {
		series, err := src.GetSeries(ctx, sym, time.Time{}, time.Time{})
		if err != nil {
			return fmt.Errorf("read %s: %w", sym, err)
		}
		n, err := dst.SaveBatch(ctx, series)
		if err != nil {
			return fmt.Errorf("write %s: %w", sym, err)
		}
		total += n
		a.logger.WithFields(map[string]interface{}{
			"symbol":   sym,
			"bars":     n,
			"progress": fmt.Sprintf("%d/%d", i+1, len(symbols)),
		}).Info("Copied series")
	}

	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Copied %s bars for %d symbols in %.2fs",
		formatNumber(int64(total)), len(symbols), time.Since(started).Seconds()))
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}
