package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/data"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-98765, "-98,765"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in))
	}

	assert.Equal(t, "1,000,001", formatMoney(1000000.6))
	assert.Equal(t, "+12.35%", formatPct(0.12345))
	assert.Equal(t, "-5.00%", formatPct(-0.05))
}

// seedSQLite writes two weekday series starting Monday 2024-04-01
func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.db")

	ctx := context.Background()
	store, err := data.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	up := &contracts.AssetSeries{Symbol: "AAA"}
	flat := &contracts.AssetSeries{Symbol: "BBB"}
	for d, i := start, 0; i < 30; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		up.Bars = append(up.Bars, contracts.Bar{Date: d, Open: 100, High: 100, Low: 100, Close: 100 + float64(i), Volume: 1000})
		flat.Bars = append(flat.Bars, contracts.Bar{Date: d, Open: 50, High: 50, Low: 50, Close: 50, Volume: 1000})
		i++
	}
	_, err = store.SaveBatch(ctx, up)
	require.NoError(t, err)
	_, err = store.SaveBatch(ctx, flat)
	require.NoError(t, err)
	return path
}

const cliStrategy = `
strategy:
  kind: momentum_rotation
  lookback_period: 5
  top_n_holdings: 1
portfolio:
  position_size: 0.9
  max_position_size: 0.9
  min_cash_buffer: 0.0
  initial_capital: 100000
rebalance:
  freq: daily
universe:
  symbols: ["AAA", "BBB"]
  start_date: "2024-04-01"
  end_date: "2024-05-10"
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBacktestRunAndValidate(t *testing.T) {
	t.Setenv("SQLITE_PATH", seedSQLite(t))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")

	strategyPath := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(strategyPath, []byte(cliStrategy), 0o644))

	t.Run("validate", func(t *testing.T) {
		out, err := execute(t, "backtest", "validate", "--strategy", strategyPath)
		require.NoError(t, err)
		assert.Contains(t, out, "momentum_rotation config is valid")
	})

	t.Run("run json", func(t *testing.T) {
		reportPath := filepath.Join(t.TempDir(), "report.json")
		out, err := execute(t, "backtest", "run", "--strategy", strategyPath, "--store", "sqlite",
			"--json", "--out", reportPath)
		require.NoError(t, err)

		var report contracts.Report
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "momentum_rotation", report.Strategy)
		assert.Equal(t, 30, report.TradingDays)
		assert.Greater(t, report.BuyTrades, 0)
		assert.Contains(t, report.FinalPositions, "AAA")

		saved, err := os.ReadFile(reportPath)
		require.NoError(t, err)
		assert.JSONEq(t, out, string(saved))
	})

	t.Run("data check", func(t *testing.T) {
		out, err := execute(t, "data", "check", "--strategy", strategyPath, "--store", "sqlite")
		require.NoError(t, err)
		assert.Contains(t, out, "Trading days   : 30")
		assert.Contains(t, out, "2 symbols passed coverage check")
	})

	t.Run("unknown store", func(t *testing.T) {
		_, err := execute(t, "backtest", "run", "--strategy", strategyPath, "--store", "parquet")
		assert.ErrorContains(t, err, "unknown store")
	})
}
