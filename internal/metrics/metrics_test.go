package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-rotation/internal/contracts"
)

// value reads a single counter or gauge
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestRunTimer_Success(t *testing.T) {
	r := NewRegistry()

	timer := r.StartRun("cli")
	assert.Equal(t, 1.0, value(t, r.ActiveRuns))

	report := &contracts.Report{
		PerformanceMetrics: contracts.PerformanceMetrics{TotalReturn: 0.12, SharpeRatio: 1.5, MaxDrawdown: -0.08},
		TradeHistory: []contracts.TradeRecord{
			{Action: contracts.ActionBuy, Reason: contracts.ReasonRebalance},
			{Action: contracts.ActionSell, Reason: contracts.ReasonStopLoss},
			{Action: contracts.ActionBuy, Reason: contracts.ReasonRebalance},
		},
	}
	timer.Finish("momentum_rotation", report, nil)

	assert.Equal(t, 0.0, value(t, r.ActiveRuns))
	assert.Equal(t, 1.0, value(t, r.Runs.WithLabelValues("cli", "success")))
	assert.Equal(t, 2.0, value(t, r.Trades.WithLabelValues("buy", "rebalance")))
	assert.Equal(t, 1.0, value(t, r.Trades.WithLabelValues("sell", "stop_loss")))
	assert.Equal(t, 0.12, value(t, r.LastReturn.WithLabelValues("momentum_rotation")))
	assert.Equal(t, -0.08, value(t, r.LastMaxDD.WithLabelValues("momentum_rotation")))
}

func TestRunTimer_Failure(t *testing.T) {
	r := NewRegistry()

	r.StartRun("api").Finish("ma_cross", nil, errors.New("boom"))

	assert.Equal(t, 1.0, value(t, r.Runs.WithLabelValues("api", "error")))
	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	for _, f := range families {
		assert.NotEqual(t, "aegis_backtest_last_total_return", f.GetName())
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordLoads(3, 1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aegis_series_loaded_total{result="loaded"} 3`)
	assert.Contains(t, rec.Body.String(), `aegis_series_loaded_total{result="missing"} 1`)
}
