// Package app wires the business modules onto the message bus and exposes
// the read-only HTTP query surface.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/haderos-erp/haderos-core/internal/bus"
	"github.com/haderos-erp/haderos-core/internal/inventory"
	"github.com/haderos-erp/haderos-core/internal/kaia"
	"github.com/haderos-erp/haderos-core/internal/learning"
	"github.com/haderos-erp/haderos-core/internal/ledger"
	"github.com/haderos-erp/haderos-core/internal/liveshop"
	"github.com/haderos-erp/haderos-core/internal/platform/cache"
	"github.com/haderos-erp/haderos-core/internal/runtime"
	"github.com/haderos-erp/haderos-core/internal/sales"
)

// Params groups the dependencies New needs. Pool and Redis are optional;
// leaving them nil disables the learning archive and the stats cache.
type Params struct {
	Config *Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Redis  *redis.Client
}

// App owns the bus, the compliance engine and every business module.
type App struct {
	Config *Config
	Logger *slog.Logger
	Bus    *bus.Bus
	Engine *kaia.Engine

	Inventory *inventory.Service
	Ledger    *ledger.Service
	Sales     *sales.Service
	LiveShop  *liveshop.Service
	Learning  *learning.Service

	statsCache *cache.StatsCache
	modules    map[bus.ModuleID]*runtime.Instrumented
}

// New builds the full module graph and registers everything on the bus.
// Nothing runs until Start.
func New(p Params) (*App, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("app: config required")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := bus.NewBus(logger)
	engine := kaia.NewEngine()

	inventorySvc := inventory.NewService(logger, b)
	ledgerSvc := ledger.NewService(logger, b)
	salesSvc := sales.NewService(logger, b, engine)
	liveSvc := liveshop.NewService(logger, b, engine, liveshop.Config{
		CartTTL:    p.Config.CartTTL,
		TaxRatePct: p.Config.TaxRatePct,
	})
	learningSvc := learning.NewService(logger).WithThreshold(p.Config.PatternThreshold)
	if p.Pool != nil {
		learningSvc.WithArchiver(learning.NewPGArchive(p.Pool))
	}

	app := &App{
		Config:    p.Config,
		Logger:    logger,
		Bus:       b,
		Engine:    engine,
		Inventory: inventorySvc,
		Ledger:    ledgerSvc,
		Sales:     salesSvc,
		LiveShop:  liveSvc,
		Learning:  learningSvc,
		modules:   make(map[bus.ModuleID]*runtime.Instrumented),
	}
	if p.Redis != nil {
		app.statsCache = cache.NewStatsCache(p.Redis, p.Config.StatsCacheTTL)
	}

	for _, m := range []runtime.Module{
		inventory.NewModule(inventorySvc, b),
		ledger.NewModule(ledgerSvc, b),
		sales.NewModule(salesSvc),
		liveshop.NewModule(liveSvc),
		learning.NewModule(learningSvc, b),
	} {
		wrapped := runtime.Instrument(m, logger).WithPublisher(b)
		app.modules[m.ID()] = wrapped
		b.Register(wrapped)
	}

	if p.Config.SeedDemo {
		if err := inventorySvc.Seed(); err != nil {
			return nil, fmt.Errorf("app: seed inventory: %w", err)
		}
	}
	return app, nil
}

// Start launches the bus consumers. It returns immediately; cancel ctx to
// stop and Wait to drain.
func (a *App) Start(ctx context.Context) {
	a.Bus.Start(ctx)
	a.Logger.Info("modules online", "count", len(a.modules))
}

// Wait blocks until every module consumer has exited after cancellation.
func (a *App) Wait() {
	a.Bus.Wait()
}

// Health reports every module's operational snapshot.
func (a *App) Health() map[string]runtime.Health {
	out := make(map[string]runtime.Health, len(a.modules))
	for id, m := range a.modules {
		out[string(id)] = m.Health()
	}
	return out
}
