package data

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-rotation/internal/calendar"
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/pkg/config"
	"github.com/wonny/aegis-rotation/pkg/logger"
	"github.com/wonny/aegis-rotation/pkg/redis"
)

// 2024-04-01 is a Monday
func day(n int) time.Time {
	return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func series(symbol string, closes ...float64) *contracts.AssetSeries {
	s := &contracts.AssetSeries{Symbol: symbol}
	for i, c := range closes {
		s.Bars = append(s.Bars, contracts.Bar{Date: day(i), Open: c - 1, High: c + 1, Low: c - 2, Close: c, Volume: 1000 + float64(i)})
	}
	return s
}

// =============================================================================
// MemoryStore
// =============================================================================

func TestMemoryStore_GetSeries(t *testing.T) {
	store := NewMemoryStore(series("AAA", 10, 11, 12, 13, 14))
	ctx := context.Background()

	s, err := store.GetSeries(ctx, "AAA", day(1), day(3))
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, 11.0, s.Bars[0].Close)
	assert.Equal(t, 13.0, s.Bars[2].Close)

	all, err := store.GetSeries(ctx, "AAA", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 5, all.Len())

	_, err = store.GetSeries(ctx, "ZZZ", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)

	_, err = store.GetSeries(ctx, "AAA", day(10), day(20))
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestMemoryStore_SaveBatchReplacesDates(t *testing.T) {
	store := NewMemoryStore(series("AAA", 10, 11, 12))
	ctx := context.Background()

	n, err := store.SaveBatch(ctx, &contracts.AssetSeries{Symbol: "AAA", Bars: []contracts.Bar{
		{Date: day(1), Close: 99},
		{Date: day(5), Close: 15},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s, err := store.GetSeries(ctx, "AAA", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	require.Equal(t, 4, s.Len())
	assert.Equal(t, 99.0, s.Bars[1].Close)
	assert.Equal(t, day(5), s.Bars[3].Date)

	symbols, err := store.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, symbols)
}

// =============================================================================
// SQLiteStore
// =============================================================================

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	in := series("005930", 70000, 70500, 71000, 70800)
	n, err := store.SaveBatch(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = store.SaveBatch(ctx, series("000660", 150000, 151000))
	require.NoError(t, err)

	out, err := store.GetSeries(ctx, "005930", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, in, out)

	ranged, err := store.GetSeries(ctx, "005930", day(1), day(2))
	require.NoError(t, err)
	require.Equal(t, 2, ranged.Len())
	assert.Equal(t, day(1), ranged.Bars[0].Date)

	symbols, err := store.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"000660", "005930"}, symbols)

	_, err = store.GetSeries(ctx, "999999", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestSQLiteStore_Upsert(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.SaveBatch(ctx, series("AAA", 10, 11, 12))
	require.NoError(t, err)
	_, err = store.SaveBatch(ctx, &contracts.AssetSeries{Symbol: "AAA", Bars: []contracts.Bar{
		{Date: day(2), Open: 20, High: 21, Low: 19, Close: 20.5, Volume: 7},
	}})
	require.NoError(t, err)

	s, err := store.GetSeries(ctx, "AAA", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, 20.5, s.Bars[2].Close)
	assert.Equal(t, 7.0, s.Bars[2].Volume)
}

// =============================================================================
// CachedStore
// =============================================================================

type countingStore struct {
	inner contracts.PriceStore
	calls atomic.Int32
}

func (c *countingStore) GetSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.AssetSeries, error) {
	c.calls.Add(1)
	return c.inner.GetSeries(ctx, symbol, from, to)
}

func TestCachedStore_DisabledCachePassesThrough(t *testing.T) {
	client, err := redis.New(context.Background(), &config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)

	inner := &countingStore{inner: NewMemoryStore(series("AAA", 1, 2, 3))}
	store := NewCachedStore(inner, redis.NewCache(client, "test"), 0, logger.Nop())

	for i := 0; i < 2; i++ {
		s, err := store.GetSeries(context.Background(), "AAA", time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, 3, s.Len())
	}
	assert.Equal(t, int32(2), inner.calls.Load())

	_, err = store.GetSeries(context.Background(), "ZZZ", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestCachedStore_UnencodableSeriesStillServed(t *testing.T) {
	client, err := redis.New(context.Background(), &config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)

	inner := &countingStore{inner: NewMemoryStore(series("GAP", 10, math.NaN(), 12))}
	store := NewCachedStore(inner, redis.NewCache(client, "test"), 0, logger.Nop())

	s, err := store.GetSeries(context.Background(), "GAP", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.True(t, math.IsNaN(s.Bars[1].Close))
	assert.Equal(t, 12.0, s.Bars[2].Close)
	assert.Equal(t, int32(1), inner.calls.Load())
}

// =============================================================================
// Loader
// =============================================================================

type failingStore struct {
	err error
}

func (f failingStore) GetSeries(context.Context, string, time.Time, time.Time) (*contracts.AssetSeries, error) {
	return nil, f.err
}

func TestLoader_Load(t *testing.T) {
	broken := series("BAD", 1, 2, 3)
	broken.Bars[1].Date = broken.Bars[0].Date

	store := NewMemoryStore(series("AAA", 1, 2, 3), series("BBB", 4, 5))
	store.series["BAD"] = broken.Bars // bypass SaveBatch merging

	loader := NewLoader(store, 2, 0, logger.Nop())
	u, results, err := loader.Load(context.Background(), []string{"AAA", "BBB", "BAD", "ZZZ"}, time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, u, 4)
	assert.Equal(t, 3, u["AAA"].Len())
	assert.Equal(t, 2, u["BBB"].Len())
	assert.Equal(t, 0, u["BAD"].Len())
	assert.Equal(t, 0, u["ZZZ"].Len())

	require.Len(t, results, 4)
	assert.NoError(t, results[0].Error)
	assert.Equal(t, 3, results[0].Bars)
	assert.Error(t, results[2].Error)
	assert.ErrorIs(t, results[3].Error, contracts.ErrDataUnavailable)
}

func TestLoader_StoreFailureAborts(t *testing.T) {
	boom := errors.New("connection refused")
	loader := NewLoader(failingStore{err: boom}, 4, 100, logger.Nop())

	_, _, err := loader.Load(context.Background(), []string{"AAA", "BBB"}, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, boom)
}

func TestLoader_Cancelled(t *testing.T) {
	loader := NewLoader(NewMemoryStore(series("AAA", 1)), 1, 0.001, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := loader.Load(ctx, []string{"AAA", "BBB", "CCC"}, time.Time{}, time.Time{})
	assert.Error(t, err)
}

// =============================================================================
// Coverage
// =============================================================================

func TestCheckCoverage(t *testing.T) {
	full := series("AAA", 1, 2, 3, 4, 5, 6, 7) // Mon..Sun
	gappy := series("BBB", 1, 2, 3, 4, 5)
	gappy.Bars = append(gappy.Bars[:2], gappy.Bars[3:]...) // drop Wednesday
	gappy.Bars[0].Close = math.NaN()

	cov := CheckCoverage(contracts.Universe{"AAA": full, "BBB": gappy}, calendar.NewWeekdayCalendar(nil), day(0), day(6))
	require.Len(t, cov, 2)

	assert.Equal(t, "AAA", cov[0].Symbol)
	assert.Equal(t, 7, cov[0].Bars)
	assert.Equal(t, 0, cov[0].MissingDays)
	assert.Equal(t, 1.0, cov[0].Ratio)

	assert.Equal(t, "BBB", cov[1].Symbol)
	assert.Equal(t, 4, cov[1].Bars)
	assert.Equal(t, 1, cov[1].MissingDays)
	assert.Equal(t, 1, cov[1].InvalidCloses)
	assert.InDelta(t, 0.8, cov[1].Ratio, 1e-12)
	assert.Equal(t, day(4), cov[1].Last)
}
