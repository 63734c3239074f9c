package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phobos/squadai/internal/config"
	"github.com/phobos/squadai/internal/core/event"
	"github.com/phobos/squadai/internal/data"
	"github.com/phobos/squadai/internal/geom"
	"github.com/phobos/squadai/internal/metrics"
	"github.com/phobos/squadai/internal/nav"
	"github.com/phobos/squadai/internal/persist"
	"github.com/phobos/squadai/internal/scripting"
	"github.com/phobos/squadai/internal/sim"
)

const (
	statusEvery       = 10 * time.Second
	observerMoveEvery = 20 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, seed uint64) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              squadsim  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       squad coordination simulator        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(seed: %d)\033[0m\n\n", serverName, seed)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := humanize.Comma(int64(count))
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main simulation logic ──────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := config.Path("config/server.toml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Server.Seed == 0 {
		cfg.Server.Seed = rand.Uint64()
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.Seed)

	// 3. Load map data
	printSection("data")
	maps, err := data.LoadMapTable(cfg.Server.Maps)
	if err != nil {
		return fmt.Errorf("load maps: %w", err)
	}
	printStat("maps", maps.Count())
	mapEntry := maps.Get(cfg.Server.Map)
	if mapEntry == nil {
		return fmt.Errorf("map %q not in %s (have %s)", cfg.Server.Map, cfg.Server.Maps, strings.Join(maps.Names(), ", "))
	}
	w, err := nav.NewProceduralWorld(mapEntry, int64(cfg.Server.Seed))
	if err != nil {
		return fmt.Errorf("build world: %w", err)
	}
	printStat("points of interest", len(w.PointsOfInterest()))

	// 4. Scripts
	printSection("scripts")
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("init lua engine: %w", err)
	}
	defer engine.Close()
	printOK("lua scripts loaded")

	var watcher *scripting.Watcher
	if cfg.Scripting.HotReload {
		watcher, err = scripting.NewWatcher(cfg.Scripting.Dir)
		if err != nil {
			log.Warn("script hot reload disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			printOK("watching " + cfg.Scripting.Dir)
		}
	}

	// 5. Telemetry
	m := metrics.New()
	var sink persist.Sink
	var repo *persist.TelemetryRepo
	if cfg.Telemetry.DSN != "" {
		printSection("telemetry")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Telemetry, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		repo = persist.NewTelemetryRepo(db)
		sink = repo
	}

	// 6. Session
	printSection("session")
	session, err := sim.New(sim.Options{
		Config:  cfg,
		Map:     mapEntry,
		World:   w,
		Pather:  nav.NewDeferredPather(w, cfg.Sim.PathDelay),
		Engine:  engine,
		Watcher: watcher,
		Sink:    sink,
		Metrics: m,
		Log:     log,
	})
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	defer session.Close()

	if repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := repo.RegisterSession(ctx, session.ID, cfg.Server.Name, mapEntry.Name, cfg.Server.Seed)
		cancel()
		if err != nil {
			return err
		}
	}
	cols, rows := session.Locations.GridSize()
	printStat("locations", len(session.Locations.AllLocations()))
	printStat("grid cells", cols*rows)
	printStat("populated cells", session.Locations.PopulatedCells())
	printStat("zones", len(session.Locations.Zones()))
	printOK("session " + session.ID.String())

	// 7. Metrics endpoint
	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		printReady("metrics on http://" + cfg.Metrics.Addr + "/metrics")
	}

	// 8. Demo host: spawn agents and observers through the event bus
	host := newDemoHost(session, cfg, rand.New(rand.NewPCG(cfg.Server.Seed, cfg.Server.Seed+1)))
	host.spawn()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sim.TickRate)
	defer ticker.Stop()
	status := time.NewTicker(statusEvery)
	defer status.Stop()

	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Sim.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			host.step(cfg.Sim.TickRate)
			session.Tick(cfg.Sim.TickRate)

		case <-status.C:
			log.Info("status",
				zap.String("ticks", humanize.Comma(int64(session.Ticks()))),
				zap.Int("agents", session.Agents.Entities.Len()),
				zap.Int("squads", session.Squads.Entities.Len()),
				zap.Int("assignments", session.Locations.Assignments()),
			)

		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			if srv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = srv.Shutdown(ctx)
				cancel()
			}
			log.Info("simulation stopped", zap.String("ticks", humanize.Comma(int64(session.Ticks()))))
			return nil
		}
	}
}

// demoHost plays the host game: it spawns squads near points of interest and
// wanders privileged observers between locations.
type demoHost struct {
	session *sim.Session
	cfg     *config.Config
	rng     *rand.Rand
	elapsed time.Duration
}

func newDemoHost(session *sim.Session, cfg *config.Config, rng *rand.Rand) *demoHost {
	return &demoHost{session: session, cfg: cfg, rng: rng}
}

func (h *demoHost) randomSpot() geom.Vec3 {
	locs := h.session.Locations.AllLocations()
	p := locs[h.rng.IntN(len(locs))].Position
	return p.Add(geom.Vec3{X: h.rng.Float64()*6 - 3, Z: h.rng.Float64()*6 - 3})
}

func (h *demoHost) spawn() {
	squadSize := h.cfg.Sim.SquadSize
	var origin geom.Vec3
	for i := 0; i < h.cfg.Sim.Agents; i++ {
		if i%squadSize == 0 {
			origin = h.randomSpot()
		}
		event.Emit(h.session.Bus, event.AgentSpawned{
			ProfileID: "pmc",
			SquadKey:  i / squadSize,
			SquadSize: squadSize,
			Position:  origin.Add(geom.Vec3{X: float64(i % squadSize)}),
		})
	}
	h.moveObservers()
}

func (h *demoHost) moveObservers() {
	for i := 0; i < h.cfg.Sim.Observers; i++ {
		event.Emit(h.session.Bus, event.ObserverMoved{ObserverID: uint64(i + 1), Position: h.randomSpot()})
	}
}

func (h *demoHost) step(dt time.Duration) {
	h.elapsed += dt
	if h.elapsed >= observerMoveEvery {
		h.elapsed = 0
		h.moveObservers()
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
