package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ProcessedFileRepository tracks source paths that already produced a record.
// Its lifecycle is independent of the records table.
type ProcessedFileRepository interface {
	Mark(ctx context.Context, path string) error
	IsProcessed(ctx context.Context, path string) (bool, error)
	Clear(ctx context.Context) error
}

type processedFileRepo struct {
	db     *DB
	logger *zap.Logger
}

func NewProcessedFileRepository(db *DB, logger *zap.Logger) ProcessedFileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &processedFileRepo{db: db, logger: logger}
}

// Mark is idempotent.
func (r *processedFileRepo) Mark(ctx context.Context, path string) error {
	q := r.db.Dialect.rebind(`INSERT INTO processed_files (path, processed_at) VALUES (?, ?) ON CONFLICT (path) DO NOTHING`)
	if _, err := r.db.ExecContext(ctx, q, path, time.Now().UTC()); err != nil {
		r.logger.Error("repository.files.mark_failed", zap.String("path", path), zap.Error(err))
		return dbError(err, "mark file processed")
	}
	return nil
}

func (r *processedFileRepo) IsProcessed(ctx context.Context, path string) (bool, error) {
	var n int
	q := r.db.Dialect.rebind(`SELECT COUNT(*) FROM processed_files WHERE path = ?`)
	if err := r.db.QueryRowContext(ctx, q, path).Scan(&n); err != nil {
		return false, dbError(err, "check processed file")
	}
	return n > 0, nil
}

func (r *processedFileRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM processed_files`); err != nil {
		return dbError(err, "clear processed files")
	}
	return nil
}
