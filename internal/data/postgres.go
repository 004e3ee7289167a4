package data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-rotation/internal/contracts"
)

// PostgresStore reads and writes data.daily_prices
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new price store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the price table when missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS data;
		CREATE TABLE IF NOT EXISTS data.daily_prices (
			stock_code  VARCHAR(20)      NOT NULL,
			trade_date  DATE             NOT NULL,
			open_price  DOUBLE PRECISION NOT NULL,
			high_price  DOUBLE PRECISION NOT NULL,
			low_price   DOUBLE PRECISION NOT NULL,
			close_price DOUBLE PRECISION NOT NULL,
			volume      DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (stock_code, trade_date)
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure price schema: %w", err)
	}
	return nil
}

// GetSeries implements contracts.PriceStore
func (s *PostgresStore) GetSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.AssetSeries, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM data.daily_prices
		WHERE stock_code = $1
		  AND ($2::date IS NULL OR trade_date >= $2)
		  AND ($3::date IS NULL OR trade_date <= $3)
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("query prices %s: %w", symbol, err)
	}
	defer rows.Close()

	series := &contracts.AssetSeries{Symbol: symbol}
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price %s: %w", symbol, err)
		}
		b.Date = normalizeDate(b.Date)
		series.Bars = append(series.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if series.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrDataUnavailable)
	}
	return series, nil
}

// ListSymbols implements contracts.SymbolLister
func (s *PostgresStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT stock_code FROM data.daily_prices ORDER BY stock_code`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	symbols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect symbols: %w", err)
	}
	return symbols, nil
}

// SaveBatch upserts every bar of the series in one round trip
func (s *PostgresStore) SaveBatch(ctx context.Context, series *contracts.AssetSeries) (int, error) {
	if series == nil || series.Len() == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO data.daily_prices (stock_code, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_code, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, b := range series.Bars {
		batch.Queue(query, series.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	saved := 0
	for range series.Bars {
		if _, err := results.Exec(); err != nil {
			return saved, fmt.Errorf("upsert prices %s: %w", series.Symbol, err)
		}
		saved++
	}
	return saved, nil
}

// nullableDate maps an open bound to SQL NULL
func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// normalizeDate strips the clock so dates compare equal across stores
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
