// Package config binds the server's enumerated environment keys (spec §6)
// through viper, with an optional YAML override file and live reload of
// the two knobs that are safe to change without a restart (cache size and
// cache TTL), following the teacher's file-based config convention
// (internal/config.GetConfigPath) generalized to a server process.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds every environment-driven knob the core consumes.
type Config struct {
	DatabaseURL            string
	DatabaseType           string
	ContextCacheSize       int
	ContextCacheTTL        time.Duration
	DefaultUserID          string
	RequestTimeoutSeconds  int
}

// Validate enforces the minimal sanity bounds the resolver and cache rely on.
func (c *Config) Validate() error {
	if c.ContextCacheSize < 1 {
		return fmt.Errorf("context_cache_size must be at least 1, got %d", c.ContextCacheSize)
	}
	if c.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("request_timeout_seconds must be at least 1, got %d", c.RequestTimeoutSeconds)
	}
	if c.DatabaseType != "postgresql" && c.DatabaseType != "sqlite" {
		return fmt.Errorf("database_type must be postgresql or sqlite, got %q", c.DatabaseType)
	}
	return nil
}

// RequestTimeout returns the configured RPC execution budget as a Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ConfigDir returns the directory used for the optional override file and
// the sqlite database when DATABASE_URL is not set, mirroring the
// teacher's ".knot" convention.
func ConfigDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return filepath.Join(cwd, ".taskmcp"), nil
}

// ConfigFilePath returns the path to the optional YAML override file.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("database_type", "postgresql")
	v.SetDefault("context_cache_size", 1000)
	v.SetDefault("context_cache_ttl", 0) // seconds; 0 = unbounded (LRU only)
	v.SetDefault("default_user_id", "dev-user")
	v.SetDefault("request_timeout_seconds", 30)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		DatabaseURL:           v.GetString("database_url"),
		DatabaseType:          v.GetString("database_type"),
		ContextCacheSize:      v.GetInt("context_cache_size"),
		ContextCacheTTL:       time.Duration(v.GetInt("context_cache_ttl")) * time.Second,
		DefaultUserID:         v.GetString("default_user_id"),
		RequestTimeoutSeconds: v.GetInt("request_timeout_seconds"),
	}
}

// Load builds a Config from the environment plus an optional YAML override
// file under .taskmcp/config.yaml. Environment variables always win: viper
// is configured to read the file first and then layer environment bindings
// on top via AutomaticEnv.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path, err := ConfigFilePath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	v.SetEnvKeyReplacer(nil)
	v.AutomaticEnv()
	for _, key := range []string{
		"database_url", "database_type", "context_cache_size",
		"context_cache_ttl", "default_user_id", "request_timeout_seconds",
	} {
		_ = v.BindEnv(key, envKeyFor(key))
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKeyFor(key string) string {
	switch key {
	case "database_url":
		return "DATABASE_URL"
	case "database_type":
		return "DATABASE_TYPE"
	case "context_cache_size":
		return "CONTEXT_CACHE_SIZE"
	case "context_cache_ttl":
		return "CONTEXT_CACHE_TTL"
	case "default_user_id":
		return "DEFAULT_USER_ID"
	case "request_timeout_seconds":
		return "REQUEST_TIMEOUT_SECONDS"
	default:
		return key
	}
}

// Watcher reloads the cache-size/cache-TTL knobs from the override file
// when it changes, without requiring a process restart. Other keys
// (database connection, default user) are read once at boot, since
// changing them at runtime would require re-homing live connections.
type Watcher struct {
	cacheSize atomic.Int64
	cacheTTL  atomic.Int64 // seconds
	logger    *zap.Logger
	onChange  func(size int, ttl time.Duration)
}

// NewWatcher starts watching the config file (if present) and returns a
// Watcher whose CacheSize/CacheTTL reflect the live values. If no config
// file exists, the watcher just holds the initial values and never reloads.
// onChange, if non-nil, is invoked with the new values each time the file
// is reloaded, letting the caller resize a live cache in place.
func NewWatcher(initial *Config, logger *zap.Logger, onChange func(size int, ttl time.Duration)) (*Watcher, error) {
	w := &Watcher{logger: logger, onChange: onChange}
	w.cacheSize.Store(int64(initial.ContextCacheSize))
	w.cacheTTL.Store(int64(initial.ContextCacheTTL / time.Second))

	path, err := ConfigFilePath()
	if err != nil {
		return w, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("failed to start config file watcher", zap.Error(err))
		return w, nil
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		logger.Warn("failed to watch config directory", zap.Error(err))
		_ = fsw.Close()
		return w, nil
	}

	go w.watch(fsw, path)
	return w, nil
}

func (w *Watcher) watch(fsw *fsnotify.Watcher, path string) {
	for event := range fsw.Events {
		if filepath.Clean(event.Name) != filepath.Clean(path) {
			continue
		}
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		v := viper.New()
		setDefaults(v)
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			w.logger.Warn("failed to reload config file", zap.Error(err))
			continue
		}
		cfg := fromViper(v)
		w.cacheSize.Store(int64(cfg.ContextCacheSize))
		w.cacheTTL.Store(int64(cfg.ContextCacheTTL / time.Second))
		w.logger.Info("reloaded context cache settings from config file",
			zap.Int64("context_cache_size", w.cacheSize.Load()),
			zap.Int64("context_cache_ttl_seconds", w.cacheTTL.Load()))
		if w.onChange != nil {
			w.onChange(w.CacheSize(), w.CacheTTL())
		}
	}
}

// CacheSize returns the current live cache-size setting.
func (w *Watcher) CacheSize() int { return int(w.cacheSize.Load()) }

// CacheTTL returns the current live cache-TTL setting.
func (w *Watcher) CacheTTL() time.Duration { return time.Duration(w.cacheTTL.Load()) * time.Second }
