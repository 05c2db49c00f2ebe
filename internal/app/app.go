// Package app wires the server's dependency graph together: config,
// repository, the context engine, the task/subtask lifecycle services,
// the agent catalog, every controller, and finally the MCP transport —
// grounded on the teacher's internal/app/app.go bootstrap shape
// (sqlite-with-in-memory-fallback repository init, urfave/cli flags
// feeding the startup sequence) generalized from a CLI tool's dependency
// graph to a long-running server's.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ctxforge/taskmcp/internal/agentcatalog"
	taskconfig "github.com/ctxforge/taskmcp/internal/config"
	"github.com/ctxforge/taskmcp/internal/controller"
	ctxengine "github.com/ctxforge/taskmcp/internal/context"
	"github.com/ctxforge/taskmcp/internal/logger"
	"github.com/ctxforge/taskmcp/internal/mcp"
	"github.com/ctxforge/taskmcp/internal/repository/inmemory"
	"github.com/ctxforge/taskmcp/internal/repository/sqlite"
	"github.com/ctxforge/taskmcp/internal/shared"
	"github.com/ctxforge/taskmcp/internal/task"
	"github.com/ctxforge/taskmcp/internal/types"
)

const (
	rpcPath        = "/mcp/"
	catalogTTL     = 30 * time.Second
	catalogCleanup = time.Minute
)

// App bundles the urfave/cli frontend around the wired server.
type App struct {
	*cli.App
}

// New builds the CLI application; its default action starts the
// HTTP/JSON-RPC server and blocks until interrupted, and the migrate
// command applies the sqlite schema and exits.
func New(version string) (*App, error) {
	cliApp := &cli.App{
		Name:    "taskmcpd",
		Usage:   "JSON-RPC task and context orchestration server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn, error, or off",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "HTTP listen address",
				EnvVars: []string{"LISTEN_ADDR"},
				Value:   ":8080",
			},
			&cli.StringFlag{
				Name:    "actor",
				Usage:   "default actor attributed to writes that don't name one",
				EnvVars: []string{"DEFAULT_USER_ID", "USER"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply the sqlite schema and exit, without starting the server",
				Action: func(c *cli.Context) error {
					logger.SetLogLevel(c.String("log-level"))
					return Migrate()
				},
			},
		},
		Action: func(c *cli.Context) error {
			logger.SetLogLevel(c.String("log-level"))
			return Serve(c.Context, c.String("addr"), shared.GetActorFromContext(c))
		},
	}
	return &App{App: cliApp}, nil
}

// Run executes the CLI application with the given arguments.
func (a *App) Run(args []string) error {
	return a.App.Run(args)
}

// Serve builds the full dependency graph and runs the HTTP server until
// ctx is cancelled or an interrupt signal arrives. defaultActor is attributed
// to tool calls whose arguments don't name an actor.
func Serve(ctx context.Context, addr string, defaultActor string) error {
	log := logger.GetLogger()

	cfg, err := taskconfig.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	repo := newRepository(cfg, log)
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn("error closing repository", zap.Error(err))
		}
	}()

	cache, err := ctxengine.NewCache(cfg.ContextCacheSize, cfg.ContextCacheTTL)
	if err != nil {
		return fmt.Errorf("initializing context cache: %w", err)
	}
	if _, err := taskconfig.NewWatcher(cfg, log, func(size int, ttl time.Duration) {
		cache.Resize(size)
		cache.SetTTL(ttl)
	}); err != nil {
		log.Warn("failed to start config file watcher, cache settings are fixed for this process", zap.Error(err))
	}
	resolver := ctxengine.NewResolver(repo, cache)
	delegation := ctxengine.NewDelegationEngine(repo, resolver)
	sync := ctxengine.NewSyncService(repo, resolver, delegation, log)

	lifecycle := task.NewLifecycleService(repo, resolver, sync)
	subtasks := task.NewSubtaskService(repo, sync)

	catalogSource := agentcatalog.NewRepositorySource(repo)
	catalog := agentcatalog.New(catalogSource, catalogTTL, catalogCleanup)
	agents := agentcatalog.NewService(repo, catalog)

	projectCtrl := controller.NewProjectController(repo)
	branchCtrl := controller.NewBranchController(repo, agents)
	taskCtrl := controller.NewTaskController(repo, lifecycle)
	subtaskCtrl := controller.NewSubtaskController(repo, subtasks)
	contextCtrl := controller.NewContextController(resolver, delegation)
	agentCtrl := controller.NewAgentController(agents)
	callAgentCtrl := controller.NewCallAgentController(agents)

	registry := mcp.NewRegistry(projectCtrl, branchCtrl, taskCtrl, subtaskCtrl, contextCtrl, agentCtrl, callAgentCtrl)
	server := mcp.NewServer(registry, mcp.ServerInfo{Name: "taskmcpd", Version: "1.0.0"}, log, defaultActor)
	httpServer := mcp.NewHTTPServer(server, rpcPath, cfg.RequestTimeout(), []string{"*"}, log)

	return run(ctx, addr, httpServer.Handler(), log)
}

// Migrate opens the sqlite repository with auto-migration enabled and
// closes it, applying the schema without starting the server. Exposed as
// the "migrate" CLI command.
func Migrate() error {
	log := logger.GetLogger()

	cfg, err := taskconfig.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := cfg.DatabaseURL
	if path == "" {
		dir, err := taskconfig.ConfigDir()
		if err != nil {
			return fmt.Errorf("resolving default database directory: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating default database directory: %w", err)
		}
		path = filepath.Join(dir, "taskmcp.db")
	}

	repo, err := sqlite.NewRepository(
		sqlite.WithDatabasePath(path),
		sqlite.WithLogger(log),
		sqlite.WithAutoMigrate(true),
	)
	if err != nil {
		return fmt.Errorf("applying sqlite schema: %w", err)
	}
	log.Info("sqlite schema applied", zap.String("path", path))
	return repo.Close()
}

// newRepository picks the storage backend. DATABASE_TYPE=postgresql is the
// documented default (spec.md §6), but no Postgres driver is wired into
// this module (see DESIGN.md); every DatabaseType value resolves to the
// same sqlite-backed store, falling back to the in-memory repository if
// the sqlite file can't be opened or migrated.
func newRepository(cfg *taskconfig.Config, log *zap.Logger) types.Repository {
	path := cfg.DatabaseURL
	if path == "" {
		dir, err := taskconfig.ConfigDir()
		if err != nil {
			log.Warn("failed to resolve default database directory, using in-memory repository", zap.Error(err))
			return inmemory.New()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn("failed to create default database directory, using in-memory repository", zap.Error(err))
			return inmemory.New()
		}
		path = filepath.Join(dir, "taskmcp.db")
	}

	repo, err := sqlite.NewRepository(
		sqlite.WithDatabasePath(path),
		sqlite.WithLogger(log),
		sqlite.WithAutoMigrate(true),
	)
	if err == nil {
		log.Info("sqlite repository initialized", zap.String("path", path), zap.String("configured_database_type", cfg.DatabaseType))
		return repo
	}
	log.Warn("failed to initialize sqlite repository, falling back to in-memory", zap.Error(err))
	return inmemory.New()
}

func run(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("taskmcpd listening", zap.String("addr", addr), zap.String("path", rpcPath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-signalCtx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
