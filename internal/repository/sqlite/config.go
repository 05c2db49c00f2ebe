package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ProjectDirName is the per-checkout directory holding the sqlite file
	// and config override, mirroring the teacher's ".knot" convention.
	ProjectDirName = ".taskmcp"
	DatabaseName   = "taskmcp.db"
)

// GetProjectDir returns the .taskmcp directory path under the current
// working directory.
func GetProjectDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return filepath.Join(cwd, ProjectDirName), nil
}

// EnsureProjectDir creates the .taskmcp directory if it doesn't exist, with
// owner-only permissions.
func EnsureProjectDir() (string, error) {
	dir, err := GetProjectDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create project directory: %w", err)
	}
	return dir, nil
}

// GetDatabasePath returns the full path to the SQLite database file used
// when DATABASE_URL is not set to an explicit dsn.
func GetDatabasePath() (string, error) {
	dir, err := EnsureProjectDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseName), nil
}
