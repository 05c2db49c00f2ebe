package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgresql", cfg.DatabaseType)
	assert.Equal(t, 1000, cfg.ContextCacheSize)
	assert.Equal(t, 30, cfg.RequestTimeoutSeconds)
	assert.Equal(t, "dev-user", cfg.DefaultUserID)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONTEXT_CACHE_SIZE", "500")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.ContextCacheSize)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, 10, cfg.RequestTimeoutSeconds)
}

func TestValidateRejectsBadDatabaseType(t *testing.T) {
	cfg := &Config{DatabaseType: "mysql", ContextCacheSize: 10, RequestTimeoutSeconds: 1}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroCacheSize(t *testing.T) {
	cfg := &Config{DatabaseType: "sqlite", ContextCacheSize: 0, RequestTimeoutSeconds: 1}
	assert.Error(t, cfg.Validate())
}

func TestConfigFilePathUnderWorkingDir(t *testing.T) {
	originalWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(originalWd) }()

	tempDir := t.TempDir()
	require.NoError(t, os.Chdir(tempDir))

	path, err := ConfigFilePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, ".taskmcp", "config.yaml"), path)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "DATABASE_TYPE", "CONTEXT_CACHE_SIZE",
		"CONTEXT_CACHE_TTL", "DEFAULT_USER_ID", "REQUEST_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
