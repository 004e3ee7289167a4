package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// Loader fetches a universe concurrently from a price store
// ⭐ SSOT: 시뮬레이션 전 데이터 로딩은 여기서만 (Load 반환 = 모든 종목 로딩 완료)
type Loader struct {
	store       contracts.PriceStore
	concurrency int
	limiter     *rate.Limiter
	logger      *logger.Logger
}

// LoadResult reports one symbol's load
type LoadResult struct {
	Symbol string
	Bars   int
	Error  error // 비치명적: 빈 시계열로 대체됨
}

// NewLoader creates a loader; ratePerSec <= 0 disables throttling
func NewLoader(store contracts.PriceStore, concurrency int, ratePerSec float64, log *logger.Logger) *Loader {
	if concurrency <= 0 {
		concurrency = 1
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Loader{
		store:       store,
		concurrency: concurrency,
		limiter:     rate.NewLimiter(limit, concurrency),
		logger:      log.WithField("module", "loader"),
	}
}

// Load fetches every symbol and returns only after all fetches finish.
// A symbol without data or with a broken series becomes an empty series;
// any other store error aborts the load.
func (l *Loader) Load(ctx context.Context, symbols []string, from, to time.Time) (contracts.Universe, []LoadResult, error) {
	l.logger.WithFields(map[string]interface{}{
		"symbols":     len(symbols),
		"from":        formatDate(from),
		"to":          formatDate(to),
		"concurrency": l.concurrency,
	}).Info("Loading price series")

	series := make([]*contracts.AssetSeries, len(symbols))
	results := make([]LoadResult, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, sym := range symbols {
		g.Go(func() error {
			if err := l.limiter.Wait(gctx); err != nil {
				return err
			}

			s, err := l.store.GetSeries(gctx, sym, from, to)
			if err != nil && !errors.Is(err, contracts.ErrDataUnavailable) {
				return fmt.Errorf("load %s: %w", sym, err)
			}
			if err == nil {
				err = s.Validate()
			}

			if err != nil {
				series[i] = &contracts.AssetSeries{Symbol: sym}
				results[i] = LoadResult{Symbol: sym, Error: err}
				l.logger.WithError(err).WithField("symbol", sym).Warn("Series unavailable, continuing without it")
				return nil
			}

			series[i] = s
			results[i] = LoadResult{Symbol: sym, Bars: s.Len()}
			return nil
		})
	}

	// barrier: 첫 바 처리 전 모든 종목 로딩 완료
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	universe := make(contracts.Universe, len(symbols))
	loaded := 0
	for i, sym := range symbols {
		universe[sym] = series[i]
		if results[i].Error == nil {
			loaded++
		}
	}

	l.logger.WithFields(map[string]interface{}{
		"loaded":  loaded,
		"missing": len(symbols) - loaded,
	}).Info("Price series loaded")

	return universe, results, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
