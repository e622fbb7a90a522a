// Package database wraps the shared sqlx/lib-pq Postgres pool used by
// the services and maps driver errors onto the API error vocabulary.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// DB wraps sqlx.DB with transaction and migration helpers.
type DB struct {
	*sqlx.DB
	logger *logger.Logger
}

// New opens a pool against the configured database and applies the
// configured pool limits.
func New(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	db, err := open(cfg.DSN(), log)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// NewWithDSN opens a pool from a raw DSN, leaving pool limits at their
// driver defaults. The test harness uses this for per-schema pools.
func NewWithDSN(dsn string, log *logger.Logger) (*DB, error) {
	return open(dsn, log)
}

func open(dsn string, log *logger.Logger) (*DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &DB{DB: db, logger: log}, nil
}

// NewFromDB wraps an existing sqlx pool. Tests use this to substitute
// a mock driver.
func NewFromDB(db *sqlx.DB, log *logger.Logger) *DB {
	return &DB{DB: db, logger: log}
}

// Close closes the pool.
func (db *DB) Close() error {
	return db.DB.Close()
}

// Health reports pool reachability for the health endpoint. The ping is
// capped at one second so a wedged database cannot stall the probe.
func (db *DB) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return map[string]string{"status": "down", "error": err.Error()}
	}
	return map[string]string{"status": "up"}
}

// Transaction runs fn inside a transaction, committing on nil and
// rolling back on error. The fn error is returned as-is so callers can
// match on sentinel errors.
func (db *DB) Transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("transaction rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ApplyMigrations executes the given DDL statements in order. Statements are
// expected to be idempotent (CREATE TABLE IF NOT EXISTS and friends), so the
// method is safe to run on every service start.
func (db *DB) ApplyMigrations(ctx context.Context, migrations []string) error {
	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
