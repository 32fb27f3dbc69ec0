// Package repository persists FinalRecords in an append-only, ordered store.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// ResultStore is the append-only sink for analysis results.
// Records come back from List in append order; there is no update or delete.
type ResultStore interface {
	Append(ctx context.Context, rec entity.FinalRecord) error
	List(ctx context.Context) ([]entity.FinalRecord, error)
	// Latest returns the most recently appended record, or common.ErrNotFound.
	Latest(ctx context.Context) (entity.FinalRecord, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (ResultStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("store.open", "backend", cfg.Backend)

	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Path, logger), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file:data/income-verifier.db"
		}
		return OpenSQLite(ctx, dsn, logger)
	case "postgres":
		return OpenPostgres(ctx, PostgresConfig{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
			DialTimeout:     cfg.DialTimeout,
		}, logger)
	case "redis":
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisKey, logger)
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown store backend %q", cfg.Backend), common.ErrInvalidInput)
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrPersistence, err)
}
