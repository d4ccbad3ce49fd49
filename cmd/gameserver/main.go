// Package main provides the game server binary: it loads the world, runs the
// operation scheduler and the day, idle and spawn loops, and exposes metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/config"
	"github.com/cory-johannsen/tilemud/internal/game/container"
	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/operation"
	"github.com/cory-johannsen/tilemud/internal/game/rules"
	"github.com/cory-johannsen/tilemud/internal/game/scheduler"
	"github.com/cory-johannsen/tilemud/internal/game/session"
	"github.com/cory-johannsen/tilemud/internal/game/world"
	"github.com/cory-johannsen/tilemud/internal/gameserver"
	"github.com/cory-johannsen/tilemud/internal/observability"
	"github.com/cory-johannsen/tilemud/internal/scripting"
	"github.com/cory-johannsen/tilemud/internal/server"
	"github.com/cory-johannsen/tilemud/internal/storage"
)

func main() {
	start := time.Now()
	// Registered first so it runs after every other deferred cleanup.
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server", zap.String("storage", cfg.Storage.Driver))

	// Load item types and the map.
	worldStart := time.Now()
	catalog, err := world.LoadItemTypes(cfg.Game.ItemsDir)
	if err != nil {
		logger.Fatal("loading item types", zap.Error(err))
	}
	items := world.NewFactory(catalog)
	tiles, err := world.LoadMapFromDir(cfg.Game.MapsDir, items)
	if err != nil {
		logger.Fatal("loading map", zap.Error(err))
	}
	logger.Info("world loaded",
		zap.Int("item_types", catalog.Len()),
		zap.Int("zones", len(tiles.Zones())),
		zap.Int("tiles", tiles.TileCount()),
		zap.Duration("elapsed", time.Since(worldStart)),
	)

	creatures := world.NewCreatureRegistry()
	sched := scheduler.New(observability.Component(logger, "scheduler"))
	sessions := session.NewManager(func(id uint32) (world.Location, bool) {
		c, ok := creatures.FindCreatureByID(id)
		if !ok {
			return world.Location{}, false
		}
		return c.Location(), true
	}, cfg.Game.ConnectionBuffer)

	// Container packets go through the scheduler, like every other notification.
	containers := container.NewManager(observability.Component(logger, "containers"), creatures, notification.NotifierFunc(func(n *notification.Notification) {
		sched.Schedule(n, 0)
	}))

	scriptMgr := scripting.NewManager(observability.Component(logger, "scripting"))
	defer scriptMgr.Close()
	if cfg.Scripting.Root != "" {
		if err := scriptMgr.LoadGlobal(cfg.Scripting.Root, cfg.Scripting.InstructionLimit); err != nil {
			logger.Fatal("loading global scripts", zap.String("dir", cfg.Scripting.Root), zap.Error(err))
		}
		logger.Info("global scripts loaded", zap.String("dir", cfg.Scripting.Root))
	}
	for _, zone := range tiles.Zones() {
		if zone.ScriptDir == "" {
			continue
		}
		info, err := os.Stat(zone.ScriptDir)
		if err != nil || !info.IsDir() {
			logger.Warn("zone script_dir not found, skipping",
				zap.String("zone", zone.ID), zap.String("dir", zone.ScriptDir))
			continue
		}
		limit := zone.ScriptInstructionLimit
		if limit == 0 {
			limit = cfg.Scripting.InstructionLimit
		}
		if err := scriptMgr.LoadZone(zone.ID, zone.ScriptDir, limit); err != nil {
			logger.Fatal("loading zone scripts", zap.String("zone", zone.ID), zap.Error(err))
		}
		logger.Info("zone scripts loaded", zap.String("zone", zone.ID), zap.String("dir", zone.ScriptDir))
	}

	var ledger operation.OrphanLedger = operation.NopLedger{}
	store, closeStore, err := storage.Open(ctx, cfg)
	switch {
	case errors.Is(err, storage.ErrNoStorage):
		logger.Warn("orphaned items will only be logged")
	case err != nil:
		logger.Fatal("opening orphan storage", zap.Error(err))
	default:
		ledger = store
		defer closeStore()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(registry, sessions.Count)
	if err != nil {
		logger.Fatal("registering metrics", zap.Error(err))
	}

	costs := operation.Costs{
		Action:         cfg.Game.Costs.Action,
		Use:            cfg.Game.Costs.Use,
		Speech:         cfg.Game.Costs.Speech,
		Push:           cfg.Game.Costs.Push,
		DiagonalFactor: cfg.Game.Costs.DiagonalFactor,
	}
	game, err := gameserver.NewGame(gameserver.Dependencies{
		Logger:      logger,
		Tiles:       tiles,
		Items:       items,
		Creatures:   creatures,
		Containers:  containers,
		Scheduler:   sched,
		Connections: sessions,
		Rules:       rules.NewScripted(scriptMgr, tiles, observability.Component(logger, "rules")),
		Ledger:      ledger,
		Metrics:     metrics,
		Costs:       &costs,
	})
	if err != nil {
		logger.Fatal("creating game", zap.Error(err))
	}
	game.BindEngine(scriptMgr)

	light := gameserver.NewWorldLight(int32(cfg.Game.StartHour), cfg.Game.LightTick, game, sessions, logger)
	idle := gameserver.NewIdleSweeper(sessions, game, game, cfg.Game.IdleTimeout, cfg.Game.IdleGracePeriod, cfg.Game.IdleSweep, logger)
	spawns := gameserver.NewSpawnManager(creatures, world.NewCreatureFactory(cfg.Game.CreatureIDBase), game, cfg.Game.SpawnInterval, logger)
	for _, zone := range tiles.Zones() {
		if len(zone.Spawns) > 0 {
			spawns.Register(zone.ID, zone.Spawns)
		}
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("scheduler", server.NewLoopService(func(ctx context.Context) error {
		return sched.Run(ctx, game.HandleEvent)
	}))
	lifecycle.Add("light", server.NewLoopService(light.Run))
	lifecycle.Add("idle", server.NewLoopService(idle.Run))
	lifecycle.Add("spawns", server.NewLoopService(spawns.Run))
	if cfg.Metrics.Enabled {
		lifecycle.Add("metrics", observability.NewMetricsServer(cfg.Metrics.Addr(), registry, logger))
	}

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Strings("services", lifecycle.Names()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("game server stopped", zap.Error(err))
		exitCode = 1
	}
}
