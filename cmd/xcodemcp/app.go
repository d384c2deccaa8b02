package main

import (
	"fmt"
	"io"
	"log/slog"

	"xcodemcp/internal/config"
	"xcodemcp/internal/domain"
	"xcodemcp/internal/executor"
	"xcodemcp/internal/logging"
	"xcodemcp/internal/metrics"
	"xcodemcp/internal/resolve"
	"xcodemcp/internal/session"
	"xcodemcp/internal/storage"
	"xcodemcp/internal/tool"
	"xcodemcp/internal/tools"
)

// app is the wired runtime shared by serve, call and the defaults commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *session.Store
	db        *storage.SQLiteStore // nil unless persistence or audit is on
	collector *metrics.Collector   // nil unless metrics are enabled
	registry  *tool.Registry
	closers   []io.Closer
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	log, closer, err := logging.New(cfg.General.LogLevel, cfg.General.LogFile)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a.logger = log
	a.closers = append(a.closers, closer)

	if cfg.Session.Persist || cfg.Audit.Enabled {
		db, err := storage.NewSQLiteStore(cfg.Session.DBPath, a.logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("storage: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, db)
	}

	storeOpts := []session.Option{session.WithLogger(a.logger)}
	if cfg.Session.Persist {
		storeOpts = append(storeOpts, session.WithBackend(a.db))
	}
	a.store = session.NewStore(storeOpts...)
	if restored := a.store.Keys(); len(restored) > 0 {
		a.logger.Debug("restored session defaults", "keys", restored)
	}

	project, err := config.LoadProject(cfg.ProjectConfigPath())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.seed(project.SessionDefaults)

	exec := executor.New(executor.Config{
		TimeoutSeconds: cfg.Executor.TimeoutSeconds,
		MaxOutputBytes: cfg.Executor.MaxOutputBytes,
		Shell:          cfg.Executor.Shell,
		Env:            cfg.Executor.Env,
		Dir:            cfg.General.Workspace,
		Logger:         a.logger,
	})
	dispatcher := tool.NewDispatcher(
		resolve.NewEngine(a.logger, resolve.DefaultSetDefaultsTool),
		a.store,
		func() domain.Executor { return exec },
		a.logger,
	)

	var regOpts []tool.RegistryOption
	if cfg.Metrics.Enabled {
		a.collector = metrics.NewCollector()
		regOpts = append(regOpts, tool.WithRecorder(a.collector))
	}
	if cfg.Audit.Enabled {
		regOpts = append(regOpts, tool.WithAudit(a.db))
	}
	a.registry = tool.NewRegistry(a.logger, dispatcher, regOpts...)

	if err := tools.Register(a.registry, a.store, config.DisabledTools(cfg, project)); err != nil {
		a.Close()
		return nil, err
	}
	a.logger.Debug("runtime ready", "tools", len(a.registry.Names()), "persist", cfg.Session.Persist, "audit", cfg.Audit.Enabled)
	return a, nil
}

// seed fills keys from the project config that the store does not hold yet,
// so values chosen at runtime and persisted win over the checked-in file. A
// key whose exclusive counterpart is already stored is skipped too.
func (a *app) seed(defaults map[string]any) {
	if len(defaults) == 0 {
		return
	}
	seeded, skipped := tools.SeedDefaults(a.store, defaults)
	if len(seeded) > 0 {
		a.logger.Info("seeded session defaults from project config", "keys", seeded)
	}
	if len(skipped) > 0 {
		a.logger.Debug("project defaults not seeded", "keys", skipped)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Warn("close failed", "err", err)
		}
	}
	a.closers = nil
}
