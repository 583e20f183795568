package main

import (
	"context"
	"fmt"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/history"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/mutex"
	"github.com/lox/blackjack/internal/storage/memory"
	"github.com/lox/blackjack/internal/storage/sqlite"
)

// tableStore is what the CLI needs from either storage driver.
type tableStore interface {
	engine.GameStore
	engine.HistoryStore
	GetHistory(ctx context.Context, gameID string) (*history.Record, error)
	ListHistory(ctx context.Context) ([]history.Record, error)
}

// table bundles an engine with its in-process collaborators.
type table struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  tableStore
	ledger *ledger.Service
	engine *engine.Engine
	close  func() error
}

func loadSettings(g *Globals) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	logger, err := shared.SetupLogger(cfg.Log, g.Debug)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func openStore(cfg *config.Config) (tableStore, func() error, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.Storage.Path, nil)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return memory.New(nil), func() error { return nil }, nil
	}
}

func openTable(g *Globals) (*table, error) {
	cfg, logger, err := loadSettings(g)
	if err != nil {
		return nil, err
	}
	return newTable(cfg, logger)
}

func newTable(cfg *config.Config, logger zerolog.Logger) (*table, error) {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	clock := quartz.NewReal()
	accounts := ledger.New(logger, clock)
	deps := engine.Deps{
		Games:   store,
		History: store,
		Locker:  mutex.NewManager(logger, clock),
		Users:   accounts,
		Ledger:  accounts,
		Bets:    accounts,
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	eng, err := engine.New(deps, logger, opts...)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	return &table{
		cfg:    cfg,
		logger: logger,
		store:  store,
		ledger: accounts,
		engine: eng,
		close:  closeStore,
	}, nil
}
