package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
)

// RecordRepository persists pending records as JSON documents keyed by id.
type RecordRepository interface {
	Insert(ctx context.Context, rec entity.ExtractionRecord) error
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, fn func(entity.ExtractionRecord) entity.ExtractionRecord) (entity.ExtractionRecord, error)
	Get(ctx context.Context, id string) (entity.ExtractionRecord, bool, error)
	List(ctx context.Context) ([]entity.ExtractionRecord, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type recordRepository struct {
	db     *DB
	logger *zap.Logger
}

func NewRecordRepository(db *DB, logger *zap.Logger) RecordRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &recordRepository{db: db, logger: logger}
}

// Insert fails with common.ErrConflict when the id is taken. The check and the
// write are one statement, so concurrent inserts of one id cannot both win.
func (r *recordRepository) Insert(ctx context.Context, rec entity.ExtractionRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	q := r.db.Dialect.rebind(`INSERT INTO pending_records (id, type, source_file, created_at, body)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, q, rec.ID, string(rec.Type), rec.SourceFile, rec.ExtractionTimestamp, string(body))
	if err != nil {
		r.logger.Error("repository.records.insert_failed", zap.String("record_id", rec.ID), zap.Error(err))
		return dbError(err, "insert record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err, "insert record")
	}
	if n == 0 {
		return common.Conflictf("record %s already exists", rec.ID)
	}
	return nil
}

func (r *recordRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Dialect.rebind(`DELETE FROM pending_records WHERE id = ?`), id)
	if err != nil {
		r.logger.Error("repository.records.delete_failed", zap.String("record_id", id), zap.Error(err))
		return dbError(err, "delete record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err, "delete record")
	}
	if n == 0 {
		return common.NotFoundf("record %s not found", id)
	}
	return nil
}

// Update reads, applies fn and writes back inside one transaction.
func (r *recordRepository) Update(ctx context.Context, id string, fn func(entity.ExtractionRecord) entity.ExtractionRecord) (entity.ExtractionRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return entity.ExtractionRecord{}, dbError(err, "begin update")
	}
	defer func() { _ = tx.Rollback() }()

	sel := `SELECT body FROM pending_records WHERE id = ?`
	if r.db.Dialect == DialectPostgres {
		sel += ` FOR UPDATE`
	}
	var body []byte
	if err := tx.QueryRowContext(ctx, r.db.Dialect.rebind(sel), id).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ExtractionRecord{}, common.NotFoundf("record %s not found", id)
		}
		return entity.ExtractionRecord{}, dbError(err, "load record")
	}
	var current entity.ExtractionRecord
	if err := json.Unmarshal(body, &current); err != nil {
		return entity.ExtractionRecord{}, errors.Wrapf(err, "decode record %s", id)
	}

	next := fn(current)
	next.ID = current.ID
	encoded, err := json.Marshal(next)
	if err != nil {
		return entity.ExtractionRecord{}, errors.Wrap(err, "encode record")
	}
	if _, err := tx.ExecContext(ctx, r.db.Dialect.rebind(`UPDATE pending_records SET body = ? WHERE id = ?`), string(encoded), id); err != nil {
		r.logger.Error("repository.records.update_failed", zap.String("record_id", id), zap.Error(err))
		return entity.ExtractionRecord{}, dbError(err, "update record")
	}
	if err := tx.Commit(); err != nil {
		return entity.ExtractionRecord{}, dbError(err, "commit update")
	}
	return next, nil
}

// Get reports ok=false for an unknown id; that is not an error.
func (r *recordRepository) Get(ctx context.Context, id string) (entity.ExtractionRecord, bool, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx, r.db.Dialect.rebind(`SELECT body FROM pending_records WHERE id = ?`), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ExtractionRecord{}, false, nil
	}
	if err != nil {
		return entity.ExtractionRecord{}, false, dbError(err, "get record")
	}
	var rec entity.ExtractionRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return entity.ExtractionRecord{}, false, errors.Wrapf(err, "decode record %s", id)
	}
	return rec, true, nil
}

func (r *recordRepository) List(ctx context.Context) ([]entity.ExtractionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, body FROM pending_records ORDER BY created_at, id`)
	if err != nil {
		r.logger.Error("repository.records.list_failed", zap.Error(err))
		return nil, dbError(err, "list records")
	}
	defer rows.Close()

	out := []entity.ExtractionRecord{}
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, dbError(err, "scan record")
		}
		var rec entity.ExtractionRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			// one corrupt row should not hide the rest of the queue
			r.logger.Warn("repository.records.decode_failed", zap.String("record_id", id), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "iterate records")
	}
	return out, nil
}

func (r *recordRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_records`).Scan(&n); err != nil {
		return 0, dbError(err, "count records")
	}
	return n, nil
}

func (r *recordRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_records`); err != nil {
		return dbError(err, "clear records")
	}
	return nil
}

func dbError(err error, op string) error {
	return errors.Mark(errors.Wrap(err, op), common.ErrDatabase)
}
