package commands

import (
	"context"
	"fmt"

	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/internal/dataset"
	"github.com/wonny/crmgeek/backend/internal/executor"
	"github.com/wonny/crmgeek/backend/internal/forecast"
	"github.com/wonny/crmgeek/backend/internal/interpret"
	"github.com/wonny/crmgeek/backend/internal/inventory"
	"github.com/wonny/crmgeek/backend/internal/orders"
	"github.com/wonny/crmgeek/backend/internal/runner"
	"github.com/wonny/crmgeek/backend/pkg/config"
	"github.com/wonny/crmgeek/backend/pkg/database"
	"github.com/wonny/crmgeek/backend/pkg/logger"
	"github.com/wonny/crmgeek/backend/pkg/redis"
)

// app is the wired dependency graph shared by the commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB             // nil when STORAGE=memory
	memory   *orders.MemoryRepository // nil unless STORAGE=memory
	redis    *redis.Client
	settings forecast.Settings

	facts        *dataset.Regenerator
	catalog      contracts.ModelCatalog
	orders       *orders.Service
	workspaces   *forecast.Workspaces
	orchestrator *forecast.Orchestrator

	closers []func() error
}

// bootstrap wires config → logger → storage → redis → pipeline
func bootstrap(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	// 3. Storage
	var (
		source  contracts.SalesSource
		repo    orders.Repository
		catalog contracts.ModelCatalog
	)
	switch cfg.Storage {
	case "memory":
		mem := orders.NewMemoryRepository()
		source, repo, catalog = mem, mem, mem
		a.memory = mem
		log.Warn("STORAGE=memory: orders and stock are not persisted")
	default:
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, func() error { db.Close(); return nil })

		pg := dataset.NewPostgresSource(db.Pool)
		source, catalog = pg, pg
		repo = orders.NewPostgresRepository(db.Pool)
		log.Info("Connected to database")
	}
	a.catalog = catalog

	// 4. Redis (optional)
	rdb, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rdb = redis.Disabled()
	}
	a.redis = rdb
	a.closers = append(a.closers, rdb.Close)

	// 5. Pipeline settings
	settings, err := forecast.ResolveSettings(cfg.Forecast)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.settings = settings
	log.WithFields(map[string]interface{}{
		"settings_hash": settings.Hash(),
		"python":        settings.Python,
		"classic":       settings.Classic.Script,
		"pro":           settings.Pro.Script,
		"regression":    settings.Regression.Script,
		"regen":         settings.Regen.Script,
	}).Info("Forecast pipeline configured")

	// 6. Stages
	run := runner.New(log, settings.Classic.Timeout)
	a.facts = dataset.NewRegenerator(source, log)

	var regen contracts.DatasetRegenerator = a.facts
	if settings.Regen.Script != "" {
		regen = dataset.NewScriptRegenerator(run, settings.Python, settings.Regen.Script, settings.Regen.Args, settings.Regen.Timeout)
	}

	exec := executor.NewProcessExecutor(run, executor.Scripts{
		Python:            settings.Python,
		Classic:           settings.Classic.Script,
		Pro:               settings.Pro.Script,
		Regression:        settings.Regression.Script,
		ClassicExtra:      settings.Classic.Args,
		ProExtra:          settings.Pro.Args,
		RegressionExtra:   settings.Regression.Args,
		ClassicTimeout:    settings.Classic.Timeout,
		ProTimeout:        settings.Pro.Timeout,
		RegressionTimeout: settings.Regression.Timeout,
	}, log)

	throttle := interpret.NewThrottle(redis.NewRateLimiter(rdb, "crm"), cfg.Interpreter.RatePerMinute)
	interpreter, closeInterp, err := interpret.NewFromConfig(ctx, cfg.Interpreter, throttle, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create interpreter: %w", err)
	}
	a.closers = append(a.closers, closeInterp)

	// 7. Orchestrator
	a.workspaces = forecast.NewWorkspaces(settings.WorkDir, settings.KeepArtifacts)
	cache := forecast.NewSideCache(
		settings.CacheDir,
		redis.NewCache(rdb, "crm"),
		settings.CacheTTL,
		log,
	)
	a.orchestrator = forecast.NewOrchestrator(regen, exec, interpreter, forecast.Options{
		Workspaces:   a.workspaces,
		Cache:        cache,
		RegenTimeout: settings.Regen.Timeout,
	}, log)

	// 8. Orders
	a.orders = orders.NewService(repo, inventory.NewReserver(log), log)

	return a, nil
}

// Close releases resources in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}
