package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-rotation/internal/backtest"
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/strategyconfig"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

type fakeRunner struct {
	trigger string
	cfg     *strategyconfig.Config
	err     error
}

func (r *fakeRunner) Run(_ context.Context, cfg *strategyconfig.Config, trigger string) (*contracts.Report, error) {
	r.cfg = cfg
	r.trigger = trigger
	if r.err != nil {
		return nil, r.err
	}
	return &contracts.Report{RunID: "run-1", Strategy: cfg.Strategy.Kind}, nil
}

const strategyYAML = `
strategy:
  kind: momentum_rotation
  lookback_period: 5
  top_n_holdings: 1
universe:
  symbols: ["AAA", "BBB"]
  start_date: "2024-01-01"
  end_date: "2024-03-31"
`

func writeStrategy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBacktestJob_Run(t *testing.T) {
	runner := &fakeRunner{}
	reports := backtest.NewReportStore(10)
	job := NewBacktestJob(runner, reports, writeStrategy(t, strategyYAML), "0 0 18 * * 1-5", logger.Nop())

	assert.Equal(t, "backtest", job.Name())
	assert.Equal(t, "0 0 18 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, backtest.TriggerScheduler, runner.trigger)
	assert.Equal(t, []string{"AAA", "BBB"}, runner.cfg.Universe.Symbols)
	assert.Equal(t, 5, runner.cfg.Strategy.LookbackPeriod)

	stored, ok := reports.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, "momentum_rotation", stored.Strategy)
}

func TestBacktestJob_InvalidConfig(t *testing.T) {
	runner := &fakeRunner{}
	path := writeStrategy(t, "strategy:\n  top_n_holdings: 0\n")
	job := NewBacktestJob(runner, backtest.NewReportStore(10), path, "@daily", logger.Nop())

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, strategyconfig.ErrInvalidConfig)
	assert.Nil(t, runner.cfg)
}

func TestBacktestJob_RunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("store down")}
	reports := backtest.NewReportStore(10)
	job := NewBacktestJob(runner, reports, writeStrategy(t, strategyYAML), "@daily", logger.Nop())

	assert.ErrorContains(t, job.Run(context.Background()), "store down")
	assert.Equal(t, 0, reports.Len())
}

func TestReportPruneJob_Run(t *testing.T) {
	reports := backtest.NewReportStore(0)
	reports.Put(&contracts.Report{RunID: "a"})
	reports.Put(&contracts.Report{RunID: "b"})

	job := NewReportPruneJob(reports, time.Hour, logger.Nop())
	assert.Equal(t, "report_prune", job.Name())

	// Nothing is older than an hour yet
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 2, reports.Len())

	job.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, reports.Len())
}
