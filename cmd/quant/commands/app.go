package commands

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-rotation/internal/backtest"
	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/internal/data"
	"github.com/wonny/aegis-rotation/internal/metrics"
	"github.com/wonny/aegis-rotation/internal/strategyconfig"
	"github.com/wonny/aegis-rotation/pkg/config"
	"github.com/wonny/aegis-rotation/pkg/database"
	"github.com/wonny/aegis-rotation/pkg/logger"
	"github.com/wonny/aegis-rotation/pkg/redis"
)

// Store kinds accepted by --store
const (
	storeAuto     = "auto"
	storeSQLite   = "sqlite"
	storePostgres = "postgres"
)

// app holds the shared dependencies of a command
type app struct {
	cfg    *config.Config
	logger *logger.Logger

	store   contracts.PriceStore
	db      *database.DB // nil unless postgres is used
	closers []func()
}

// loadApp reads env config and builds the logger
func loadApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	return &app{cfg: cfg, logger: logger.New(cfg)}, nil
}

// openStore connects the price store selected by --store, wrapped with the redis cache when enabled
func (a *app) openStore(ctx context.Context) error {
	kind := storeKind
	if kind == storeAuto {
		kind = storeSQLite
		if a.cfg.HasDatabase() {
			kind = storePostgres
		}
	}

	var store contracts.PriceStore
	switch kind {
	case storePostgres:
		pg, err := a.openPostgres(ctx)
		if err != nil {
			return err
		}
		store = pg
	case storeSQLite:
		lite, err := a.openSQLite(ctx)
		if err != nil {
			return err
		}
		store = lite
	default:
		return fmt.Errorf("unknown store %q (auto|sqlite|postgres)", kind)
	}

	a.logger.WithField("store", kind).Info("Price store ready")

	rdb, err := redis.New(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	if rdb.Enabled() {
		cache := redis.NewCache(rdb, "aegis:prices")
		store = data.NewCachedStore(store, cache, rdb.DefaultTTL(), a.logger)
		a.logger.Info("Price cache enabled")
	}

	a.store = store
	return nil
}

func (a *app) openPostgres(ctx context.Context) (*data.PostgresStore, error) {
	if a.db == nil {
		db, err := database.New(ctx, a.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
	}
	return data.NewPostgresStore(a.db.Pool), nil
}

func (a *app) openSQLite(ctx context.Context) (*data.SQLiteStore, error) {
	lite, err := data.OpenSQLite(ctx, a.cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", a.cfg.SQLite.Path, err)
	}
	a.closers = append(a.closers, func() { _ = lite.Close() })
	return lite, nil
}

// strategyConfig loads --strategy or STRATEGY_CONFIG
func (a *app) strategyConfig() (*strategyconfig.Config, error) {
	path := strategyFile
	if path == "" {
		path = a.cfg.StrategyConfigPath
	}

	cfg, _, err := strategyconfig.Load(path)
	if err != nil {
		return nil, err
	}
	a.logger.WithField("path", path).Debug("Strategy config loaded")
	return cfg, nil
}

// Close releases everything opened by the app, newest first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newRunner builds a backtest runner over the opened store; reg may be nil
func (a *app) newRunner(reg *metrics.Registry) *backtest.Runner {
	return backtest.NewRunner(a.store, backtest.RunnerConfig{
		LoaderConcurrency: a.cfg.LoaderConcurrency,
		LoaderRatePerSec:  a.cfg.LoaderRatePerSec,
	}, reg, a.logger)
}
