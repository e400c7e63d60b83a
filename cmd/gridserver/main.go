package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/gridgo/internal/auth"
	"github.com/udisondev/gridgo/internal/config"
	"github.com/udisondev/gridgo/internal/db"
	"github.com/udisondev/gridgo/internal/game"
	_ "github.com/udisondev/gridgo/internal/game/gridmove"
	"github.com/udisondev/gridgo/internal/gameserver"
	"github.com/udisondev/gridgo/internal/tick"
)

const ConfigPath = "config/gridserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("GRIDGO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("grid server starting",
		"addr", cfg.Addr(),
		"tick_interval", cfg.TickInterval(),
		"game_module", cfg.GameModule,
		"log_level", cfg.LogLevel)

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := database.RunMigrations(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	accounts := db.NewAccountRepository(database.Pool())
	zones := db.NewZoneRepository(database.Pool())
	entities := db.NewEntityRepository(database.Pool())
	gateway := db.NewGateway(database.Pool())

	module, err := game.New(cfg.GameModule)
	if err != nil {
		return fmt.Errorf("resolving game module: %w", err)
	}
	adapter, err := game.NewAdapter(module, gateway)
	if err != nil {
		return fmt.Errorf("initializing game module %q: %w", cfg.GameModule, err)
	}
	slog.Info("game module loaded", "module", cfg.GameModule, "registered", game.Registered())

	queue := tick.NewIntentQueue()
	manager := gameserver.NewClientManager()
	engine := tick.NewEngine(cfg.TickInterval(), cfg.ZoneParallelism, &gatewayStore{gw: gateway}, queue, manager, adapter)

	authSvc := auth.NewService(accounts, cfg)
	server := gameserver.NewServer(cfg, manager, queue, engine, gateway, zones, entities, authSvc)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := engine.Start(gctx); err != nil {
			return fmt.Errorf("tick engine: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("game server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// gatewayStore adapts db.Gateway's concrete transaction type to the
// engine's interface.
type gatewayStore struct {
	gw *db.Gateway
}

func (s *gatewayStore) WithZoneTx(ctx context.Context, fn func(tx tick.ZoneTx) error) error {
	return s.gw.WithZoneTx(ctx, func(tx *db.ZoneTx) error {
		return fn(tx)
	})
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
