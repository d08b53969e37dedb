package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/intake-tracker/internal/common"
)

// Dialect selects placeholder style and locking clauses.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type Config struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom maps the application database settings.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		Driver:           c.Driver,
		DSN:              c.DSN,
		MaxConns:         int32(c.MaxConns),
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// DB is a *sql.DB that remembers its dialect. For postgres it also owns the pgx pool.
type DB struct {
	*sql.DB
	Dialect Dialect
	pool    *pgxpool.Pool
}

// NewDB wraps an existing handle; used with sqlmock in tests.
func NewDB(db *sql.DB, dialect Dialect) *DB {
	return &DB{DB: db, Dialect: dialect}
}

// Open connects using the configured driver. Postgres goes through a pgx pool wrapped as *sql.DB.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("repository.db.connect", zap.String("driver", cfg.Driver))

	switch Dialect(cfg.Driver) {
	case DialectSQLite:
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("repository.db.connect_failed", zap.Error(err))
			return nil, errors.Mark(errors.Wrap(err, "open sqlite"), common.ErrDatabase)
		}
		// sqlite serializes writers; one connection avoids SQLITE_BUSY churn.
		db.SetMaxOpenConns(1)
		if err := pingWithTimeout(ctx, db, cfg.DialTimeout); err != nil {
			_ = db.Close()
			logger.Error("repository.db.connect_failed", zap.Error(err))
			return nil, err
		}
		logger.Info("repository.db.connected", zap.String("driver", cfg.Driver))
		return &DB{DB: db, Dialect: DialectSQLite}, nil

	case DialectPostgres:
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("repository.db.connect_failed", zap.Error(err))
			return nil, errors.Mark(errors.Wrap(err, "parse postgres dsn"), common.ErrDatabase)
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		pc.MaxConnLifetime = cfg.MaxConnLifetime
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
		pc.ConnConfig.RuntimeParams["application_name"] = "intake-tracker"
		if cfg.StatementTimeout > 0 {
			pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
		}

		dialCtx, cancel := withOptionalTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("repository.db.connect_failed", zap.Error(err))
			return nil, errors.Mark(errors.Wrap(err, "connect postgres"), common.ErrDatabase)
		}
		if err := pool.Ping(dialCtx); err != nil {
			pool.Close()
			logger.Error("repository.db.connect_failed", zap.Error(err))
			return nil, errors.Mark(errors.Wrap(err, "ping postgres"), common.ErrDatabase)
		}
		logger.Info("repository.db.connected", zap.String("driver", cfg.Driver))
		return &DB{DB: stdlib.OpenDBFromPool(pool), Dialect: DialectPostgres, pool: pool}, nil
	}
	return nil, errors.Mark(errors.Newf("unsupported database driver %q", cfg.Driver), common.ErrInvalidInput)
}

// Close closes the database connections gracefully
func Close(db *DB, logger *zap.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("repository.db.close")
	if err := db.DB.Close(); err != nil {
		logger.Error("repository.db.close_failed", zap.Error(err))
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

// HealthCheck pings the database, bounded by timeout when positive.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration) error {
	return pingWithTimeout(ctx, db.DB, timeout)
}

func pingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ctx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return errors.Mark(errors.Wrap(err, "ping database"), common.ErrDatabase)
	}
	return nil
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// rebind rewrites ? placeholders to $1..$n for postgres.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
