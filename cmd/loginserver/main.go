package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/l2emu/core/internal/broker"
	"github.com/l2emu/core/internal/config"
	"github.com/l2emu/core/internal/db"
	"github.com/l2emu/core/internal/gslistener"
	"github.com/l2emu/core/internal/login"
	"github.com/l2emu/core/internal/registry"
)

const ConfigPath = "config/loginserver.yaml"

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

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Configure slog
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("la2go login server starting")

	// Load config
	cfgPath := ConfigPath
	if p := os.Getenv("LA2GO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadLoginServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port, "auto_create", cfg.AutoCreateAccounts,
		"gs_listen_host", cfg.GSListenHost, "gs_listen_port", cfg.GSListenPort)

	// Connect to database
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	// Run migrations
	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// State shared between the client-facing login side and the GS-facing
	// listener side: which game servers are up, which accounts are logged
	// in, and the sink registry/broker the login side uses to reach a GS.
	gsTable := registry.NewGSRegistry()
	playerRegistry := registry.NewPlayerRegistry()
	gsHandlers := registry.NewHandlerRegistry[int]()
	gsMessageTimeout := time.Duration(cfg.GSMessageTimeoutSeconds) * time.Second
	reqBroker := broker.New(gsHandlers, gsMessageTimeout)

	loginSrv, err := login.NewServer(cfg, database)
	if err != nil {
		return fmt.Errorf("creating login server: %w", err)
	}
	loginSrv.SetPlayerRegistry(playerRegistry)
	loginSrv.SetGSHandlers(gsHandlers)
	loginSrv.SetBroker(reqBroker)
	loginSrv.SetGSTable(gsTable)

	gsSrv, err := gslistener.NewServer(cfg, gsTable, playerRegistry, gsHandlers, reqBroker, loginSrv.SessionManager())
	if err != nil {
		return fmt.Errorf("creating gameserver listener: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loginSrv.Run(gctx)
	})
	g.Go(func() error {
		return gsSrv.Run(gctx)
	})

	return g.Wait()
}
