package main

import (
	"context"
	"fmt"
	"log/slog"

	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/ledger/storage"
	"rxsentinel/arbiter/pkg/refdata"
	"rxsentinel/arbiter/pkg/telemetry/logging"
)

// setupLogging builds the process logger from configuration and
// installs it as the slog default. Flag overrides are applied by the
// caller before this runs.
func setupLogging(cfg *config.Config) error {
	logger, err := logging.New(logging.FromTelemetryConfig(cfg.Telemetry.Logging))
	if err != nil {
		return err
	}
	slog.SetDefault(logger.Slog())
	return nil
}

// openRefdata opens the configured reference-data source. The SQLite
// backend is bootstrapped with the built-in state shipping rules, which
// never overwrite rows a sync pipeline already wrote.
func openRefdata(ctx context.Context, cfg *config.Config) (refdata.Source, error) {
	switch cfg.Refdata.Backend {
	case "sqlite":
		src, err := refdata.NewSQLiteSourceWithConfig(refdata.SQLiteSourceConfig{
			Path:        cfg.Refdata.SQLite.Path,
			BusyTimeout: cfg.Refdata.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open reference database: %w", err)
		}
		if err := src.Bootstrap(ctx); err != nil {
			src.Close()
			return nil, fmt.Errorf("failed to bootstrap reference database: %w", err)
		}
		return src, nil
	case "memory":
		if cfg.Refdata.SeedFile != "" {
			return refdata.LoadSeedFile(cfg.Refdata.SeedFile)
		}
		return refdata.NewMemorySource(), nil
	default:
		return nil, fmt.Errorf("unsupported refdata backend: %s (supported: sqlite, memory)", cfg.Refdata.Backend)
	}
}

// openLedgerStore opens the configured audit ledger store.
func openLedgerStore(cfg *config.Config) (ledger.Store, error) {
	switch cfg.Ledger.Backend {
	case "sqlite":
		store, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
			Path:         cfg.Ledger.SQLite.Path,
			MaxOpenConns: cfg.Ledger.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Ledger.SQLite.MaxIdleConns,
			WALMode:      cfg.Ledger.SQLite.WALMode,
			BusyTimeout:  cfg.Ledger.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger database: %w", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s (supported: sqlite, memory)", cfg.Ledger.Backend)
	}
}
