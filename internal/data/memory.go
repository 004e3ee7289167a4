package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/aegis-rotation/internal/contracts"
)

// MemoryStore keeps series in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	series map[string][]contracts.Bar
}

// NewMemoryStore creates a store preloaded with the given series
func NewMemoryStore(series ...*contracts.AssetSeries) *MemoryStore {
	s := &MemoryStore{series: make(map[string][]contracts.Bar)}
	for _, sr := range series {
		_, _ = s.SaveBatch(context.Background(), sr)
	}
	return s
}

// GetSeries implements contracts.PriceStore
func (s *MemoryStore) GetSeries(_ context.Context, symbol string, from, to time.Time) (*contracts.AssetSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars, ok := s.series[symbol]
	if !ok {
		return nil, contracts.ErrDataUnavailable
	}

	out := (&contracts.AssetSeries{Symbol: symbol, Bars: bars}).Slice(from, to)
	if out.Len() == 0 {
		return nil, contracts.ErrDataUnavailable
	}
	return out, nil
}

// ListSymbols implements contracts.SymbolLister
func (s *MemoryStore) ListSymbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.series))
	for sym := range s.series {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// SaveBatch implements contracts.BarWriter; a bar on an existing date replaces it
func (s *MemoryStore) SaveBatch(_ context.Context, series *contracts.AssetSeries) (int, error) {
	if series == nil || series.Symbol == "" {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byDate := make(map[time.Time]contracts.Bar, len(s.series[series.Symbol])+len(series.Bars))
	for _, b := range s.series[series.Symbol] {
		byDate[b.Date] = b
	}
	for _, b := range series.Bars {
		byDate[b.Date] = b
	}

	merged := make([]contracts.Bar, 0, len(byDate))
	for _, b := range byDate {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

	s.series[series.Symbol] = merged
	return len(series.Bars), nil
}
