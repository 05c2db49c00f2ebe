package sqlite

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

// OptimizedConfig returns a Config auto-tuned for the host's CPU count,
// with environment overrides for operators who need to tune a specific
// deployment.
func OptimizedConfig() *Config {
	config := DefaultConfig()

	if v := os.Getenv("TASKMCP_SQLITE_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxOpenConns = n
		}
	}
	if v := os.Getenv("TASKMCP_SQLITE_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxIdleConns = n
		}
	}

	return autoTuneForSQLite(config)
}

// autoTuneForSQLite widens the read pool on multi-core hosts while keeping
// writes effectively serialized, since SQLite locks at the file level.
func autoTuneForSQLite(config *Config) *Config {
	if config.MaxOpenConns == 1 {
		readConns := min(runtime.NumCPU(), 4)
		config.MaxOpenConns = readConns
		config.MaxIdleConns = min(readConns/2, 2)
		if config.MaxIdleConns < 1 {
			config.MaxIdleConns = 1
		}
	}
	if config.ConnMaxIdleTime == 30*time.Minute {
		config.ConnMaxIdleTime = time.Hour
	}
	return config
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
