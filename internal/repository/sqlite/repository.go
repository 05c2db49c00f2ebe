// Package sqlite implements types.Repository directly on database/sql and
// the pure-Go modernc.org/sqlite driver. The teacher used entgo.io/ent for
// this layer; ent's client is generated code and this exercise never runs
// `go generate`, so the repository is hand-written SQL instead, keeping the
// teacher's connection-pool tuning, health-check, and functional-options
// conventions (options.go, pool_optimization.go, health.go) and replacing
// only the query layer itself.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
	"go.uber.org/zap"

	"github.com/ctxforge/taskmcp/internal/types"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx, letting every query method
// run unmodified whether or not it is inside WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqliteRepository struct {
	db     *sql.DB
	config *Config
	logger *zap.Logger
}

type txKey struct{}

// NewRepository opens (creating if necessary) the SQLite database, applies
// performance pragmas, and runs schema migration unless disabled.
func NewRepository(opts ...Option) (types.Repository, error) {
	config := OptimizedConfig()
	repo := &sqliteRepository{config: config, logger: config.Logger}

	for _, opt := range opts {
		opt(repo)
	}
	if repo.logger == nil {
		repo.logger = zap.NewNop()
	}

	if err := repo.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize sqlite repository: %w", err)
	}
	return repo, nil
}

func (r *sqliteRepository) initialize() error {
	dsn := r.config.DatabasePath
	if dsn == "" {
		path, err := GetDatabasePath()
		if err != nil {
			return fmt.Errorf("failed to resolve database path: %w", err)
		}
		dsn = path
	}

	r.logger.Info("opening sqlite database", zap.String("path", dsn))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := applyPragmas(db, r.logger); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to configure pragmas: %w", err)
	}

	db.SetMaxOpenConns(r.config.MaxOpenConns)
	db.SetMaxIdleConns(r.config.MaxIdleConns)
	db.SetConnMaxLifetime(r.config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(r.config.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping failed: %w", err)
	}

	r.db = db

	if r.config.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), r.config.MigrationTimeout)
		defer cancel()
		if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("schema migration failed: %w", err)
		}
		r.logger.Info("schema migration completed")
	}

	return nil
}

// applyPragmas mirrors the teacher's configureSQLiteOptimizations: WAL mode
// for concurrent readers, foreign keys on so cascades and the FK-missing
// error path both work, and a memory-backed temp store.
func applyPragmas(db *sql.DB, logger *zap.Logger) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			logger.Warn("failed to apply pragma", zap.String("pragma", p), zap.Error(err))
		}
	}
	return nil
}

func (r *sqliteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *sqliteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// q returns the executor in scope: the active transaction if ctx was
// produced by WithTx, otherwise the pooled *sql.DB.
func (r *sqliteRepository) q(ctx context.Context) dbtx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return r.db
}

// WithTx runs fn inside a single *sql.Tx, committing on success and rolling
// back on error or panic, matching spec §5's "all repository writes and the
// resulting cache invalidations execute within one transaction" guarantee.
func (r *sqliteRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo types.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Warn("rollback failed", zap.Error(rbErr))
			}
			return
		}
		err = tx.Commit()
	}()

	txCtx := context.WithValue(ctx, txKey{}, tx)
	err = fn(txCtx, r)
	return err
}
