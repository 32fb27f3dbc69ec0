package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type PostgresConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// OpenPostgres creates a pgx pool, wraps it for ent's SQL driver and migrates the schema.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		return nil, persistenceError("parse database url", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "income-verifier"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, persistenceError("connect postgres", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		logger.Error("failed to ping database", "error", err)
		return nil, persistenceError("ping postgres", err)
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	drv := entsql.OpenDB(dialect.Postgres, db)

	store, err := newSQLStore(ctx, drv, logger)
	if err != nil {
		_ = drv.Close()
		pool.Close()
		return nil, err
	}
	store.closers = append(store.closers, func() error { pool.Close(); return nil })
	logger.Info("successfully connected to database")
	return store, nil
}

// OpenSQLite opens an embedded database. dsn is a modernc sqlite DSN such as
// "file:data/records.db" or "file::memory:?cache=shared"; foreign keys are enabled.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", withPragma(dsn))
	if err != nil {
		return nil, persistenceError("open sqlite", err)
	}
	// one writer keeps appends ordered and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, persistenceError("ping sqlite", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	store, err := newSQLStore(ctx, drv, logger)
	if err != nil {
		_ = drv.Close()
		return nil, err
	}
	logger.Info("successfully opened sqlite database")
	return store, nil
}

func withPragma(dsn string) string {
	const pragma = "_pragma=foreign_keys(1)"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + pragma
	}
	return dsn + "?" + pragma
}

// HealthCheck pings the store's database.
func HealthCheck(ctx context.Context, s *SQLStore, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logger.Debug("pinging database")
	if err := s.drv.DB().PingContext(ctx); err != nil {
		return persistenceError("ping", err)
	}
	logger.Debug("database ping successful")
	return nil
}
