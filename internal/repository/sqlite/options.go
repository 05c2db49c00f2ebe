package sqlite

import (
	"time"

	"go.uber.org/zap"
)

// Config holds configuration for the SQLite repository.
type Config struct {
	DatabasePath    string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	AutoMigrate      bool
	MigrationTimeout time.Duration
	Logger           *zap.Logger
}

// DefaultConfig returns a configuration tuned for SQLite's single-writer,
// multiple-reader concurrency model.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:     "",
		MaxOpenConns:     1,
		MaxIdleConns:     1,
		ConnMaxLifetime:  0,
		ConnMaxIdleTime:  30 * time.Minute,
		AutoMigrate:      true,
		MigrationTimeout: 5 * time.Minute,
		Logger:           zap.NewNop(),
	}
}

// Option configures a SQLite repository at construction time.
type Option func(*sqliteRepository)

func WithConfig(config *Config) Option {
	return func(r *sqliteRepository) { r.config = config }
}

func WithDatabasePath(path string) Option {
	return func(r *sqliteRepository) { r.config.DatabasePath = path }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *sqliteRepository) { r.config.Logger = logger }
}

func WithAutoMigrate(enable bool) Option {
	return func(r *sqliteRepository) { r.config.AutoMigrate = enable }
}

func WithConnectionPool(maxOpen, maxIdle int) Option {
	return func(r *sqliteRepository) {
		r.config.MaxOpenConns = maxOpen
		r.config.MaxIdleConns = maxIdle
	}
}

func WithConnectionLifetime(maxLifetime, maxIdleTime time.Duration) Option {
	return func(r *sqliteRepository) {
		r.config.ConnMaxLifetime = maxLifetime
		r.config.ConnMaxIdleTime = maxIdleTime
	}
}

func WithMigrationTimeout(timeout time.Duration) Option {
	return func(r *sqliteRepository) { r.config.MigrationTimeout = timeout }
}
