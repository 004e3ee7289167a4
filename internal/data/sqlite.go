package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/wonny/aegis-rotation/internal/contracts"
)

const sqliteDateLayout = "2006-01-02"

// SQLiteStore reads and writes a local daily_prices table
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite file and makes sure the schema exists.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// 단일 커넥션: :memory: DB 공유 + 쓰기 잠금 회피
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InitSchema creates the price table when missing
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS daily_prices(
		symbol TEXT NOT NULL,
		date   TEXT NOT NULL,
		open   REAL,
		high   REAL,
		low    REAL,
		close  REAL NOT NULL,
		volume REAL,
		PRIMARY KEY (symbol, date)
	)`)
	if err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

// GetSeries implements contracts.PriceStore
func (s *SQLiteStore) GetSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.AssetSeries, error) {
	lo, hi := "0000-01-01", "9999-12-31"
	if !from.IsZero() {
		lo = from.Format(sqliteDateLayout)
	}
	if !to.IsZero() {
		hi = to.Format(sqliteDateLayout)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, COALESCE(open, close), COALESCE(high, close), COALESCE(low, close), close, COALESCE(volume, 0)
		 FROM daily_prices WHERE symbol=? AND date>=? AND date<=? ORDER BY date ASC`,
		symbol, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query prices %s: %w", symbol, err)
	}
	defer rows.Close()

	series := &contracts.AssetSeries{Symbol: symbol}
	for rows.Next() {
		var (
			date string
			b    contracts.Bar
		)
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price %s: %w", symbol, err)
		}
		if b.Date, err = time.Parse(sqliteDateLayout, date); err != nil {
			return nil, fmt.Errorf("parse date %q for %s: %w", date, symbol, err)
		}
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
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM daily_prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// SaveBatch upserts the series inside one transaction
func (s *SQLiteStore) SaveBatch(ctx context.Context, series *contracts.AssetSeries) (int, error) {
	if series == nil || series.Len() == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO daily_prices(symbol,date,open,high,low,close,volume)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(symbol,date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, volume=excluded.volume`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range series.Bars {
		if _, err := stmt.ExecContext(ctx, series.Symbol, b.Date.Format(sqliteDateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", series.Symbol, b.Date.Format(sqliteDateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return series.Len(), nil
}
