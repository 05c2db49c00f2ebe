// Package testutil provides shared fixtures for tests across the module:
// repository setup (in-memory or a throwaway sqlite file), project/branch/
// task seeding, and small timing/tempfile helpers.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ctxforge/taskmcp/internal/repository/inmemory"
	"github.com/ctxforge/taskmcp/internal/repository/sqlite"
	"github.com/ctxforge/taskmcp/internal/types"
)

// TestConfig holds configuration for tests.
type TestConfig struct {
	UseInMemoryDB bool
	TempDir       string
	Logger        *zap.Logger
}

// NewTestConfig creates a new test configuration, defaulting to an
// in-memory repository for speed.
func NewTestConfig(t *testing.T) *TestConfig {
	return &TestConfig{
		UseInMemoryDB: true,
		Logger:        zaptest.NewLogger(t),
	}
}

// WithSQLiteDB configures the test to use a throwaway sqlite database.
func (tc *TestConfig) WithSQLiteDB() *TestConfig {
	tc.UseInMemoryDB = false
	return tc
}

// WithTempDir sets a custom temp directory for the sqlite test database.
func (tc *TestConfig) WithTempDir(dir string) *TestConfig {
	tc.TempDir = dir
	return tc
}

// SetupTestRepository creates a test repository per the configuration.
func (tc *TestConfig) SetupTestRepository(t *testing.T) types.Repository {
	if tc.UseInMemoryDB {
		return inmemory.New()
	}

	tempDir := tc.TempDir
	if tempDir == "" {
		var err error
		tempDir, err = os.MkdirTemp("", "taskmcp_test_*")
		require.NoError(t, err)
		t.Cleanup(func() { os.RemoveAll(tempDir) })
	}

	dbPath := tempDir + "/test.db"
	repo, err := sqlite.NewRepository(
		sqlite.WithDatabasePath(dbPath),
		sqlite.WithLogger(tc.Logger),
		sqlite.WithAutoMigrate(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

// SeedProject creates and persists a project.
func SeedProject(t *testing.T, repo types.Repository, name string) *types.Project {
	t.Helper()
	p := &types.Project{Name: name}
	require.NoError(t, repo.CreateProject(context.Background(), p))
	return p
}

// SeedBranch creates and persists a branch under projectID.
func SeedBranch(t *testing.T, repo types.Repository, projectID uuid.UUID, name string) *types.Branch {
	t.Helper()
	b := &types.Branch{ProjectID: projectID, Name: name, Status: types.BranchStatusActive}
	require.NoError(t, repo.CreateBranch(context.Background(), b))
	return b
}

// SeedTask creates and persists a task under branchID.
func SeedTask(t *testing.T, repo types.Repository, branchID uuid.UUID, title string) *types.Task {
	t.Helper()
	task := &types.Task{
		BranchID: branchID,
		Title:    title,
		Status:   types.TaskStatusTodo,
		Priority: types.TaskPriorityMedium,
	}
	require.NoError(t, repo.CreateTask(context.Background(), task))
	return task
}

// WaitForCondition polls condition until it is true or timeout elapses.
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("timeout waiting for condition: %s", message)
		case <-ticker.C:
			if condition() {
				return
			}
		}
	}
}

// TempFile creates a temporary file containing content, cleaned up at
// test end.
func TempFile(t *testing.T, content string) string {
	tmpFile, err := os.CreateTemp("", "taskmcp_test_*.tmp")
	require.NoError(t, err)

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	t.Cleanup(func() { os.Remove(tmpFile.Name()) })
	return tmpFile.Name()
}

// TempDir creates a temporary directory, cleaned up at test end.
func TempDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "taskmcp_test_*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}
