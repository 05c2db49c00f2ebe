package sqlite

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// HealthStatus reports the current state of the repository's connection
// pool, mirroring the teacher's health.go shape but against the plain
// *sql.DB the pure-Go driver returns instead of an ent client.
type HealthStatus struct {
	Healthy         bool          `json:"healthy"`
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration"`
	LastError       string        `json:"last_error,omitempty"`
}

// HealthCheck pings the database and reports pool statistics.
func (r *sqliteRepository) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.db.PingContext(pingCtx); err != nil {
		status.Healthy = false
		status.LastError = err.Error()
	} else {
		status.Healthy = true
	}

	stats := r.db.Stats()
	status.OpenConnections = stats.OpenConnections
	status.InUse = stats.InUse
	status.Idle = stats.Idle
	status.WaitCount = stats.WaitCount
	status.WaitDuration = stats.WaitDuration

	return status
}

// ValidateConnection runs a trivial query end to end, catching cases a bare
// Ping misses (e.g. the file was deleted out from under an open handle).
func (r *sqliteRepository) ValidateConnection(ctx context.Context) error {
	var one int
	return r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

// MonitorConnection logs a warning every time HealthCheck reports unhealthy,
// until ctx is cancelled. Intended to run in its own goroutine from the
// daemon's startup path.
func (r *sqliteRepository) MonitorConnection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := r.HealthCheck(ctx)
			if !status.Healthy {
				r.logger.Warn("sqlite health check failed", zap.String("error", status.LastError))
			}
		}
	}
}

// getUnderlyingDB exposes the pooled *sql.DB for callers (e.g. a
// /readyz handler) that need direct access outside the Repository interface.
func (r *sqliteRepository) getUnderlyingDB() *sql.DB {
	return r.db
}
