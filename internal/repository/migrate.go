package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/common"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS pending_records (
		id          TEXT PRIMARY KEY,
		type        TEXT NOT NULL,
		source_file TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		body        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS pending_records_created_at_idx ON pending_records (created_at)`,
	`CREATE TABLE IF NOT EXISTS processed_files (
		path         TEXT PRIMARY KEY,
		processed_at TIMESTAMP NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS pending_records (
		id          TEXT PRIMARY KEY,
		type        TEXT NOT NULL,
		source_file TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		body        JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS pending_records_created_at_idx ON pending_records (created_at)`,
	`CREATE TABLE IF NOT EXISTS processed_files (
		path         TEXT PRIMARY KEY,
		processed_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the queue tables when missing. Safe to run on every start.
func Migrate(ctx context.Context, db *DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	stmts := sqliteSchema
	if db.Dialect == DialectPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error("repository.migrate.failed", zap.Error(err))
			return errors.Mark(errors.Wrap(err, "migrate"), common.ErrDatabase)
		}
	}
	logger.Info("repository.migrate.ok", zap.String("dialect", string(db.Dialect)))
	return nil
}
