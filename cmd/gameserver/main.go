package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/l2emu/core/internal/config"
	"github.com/l2emu/core/internal/db"
	"github.com/l2emu/core/internal/gameserver"
	"github.com/l2emu/core/internal/gsdial"
)

const (
	GameConfigPath = "config/gameserver.yaml"
)

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
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("la2go game server starting")

	cfgPath := GameConfigPath
	if p := os.Getenv("LA2GO_GAME_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadGameServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded",
		"bind", cfg.BindAddress, "port", cfg.Port,
		"login_host", cfg.LoginHost, "login_port", cfg.LoginPort,
		"server_id", cfg.ServerID, "hex_id", cfg.HexID)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	charRepo := db.NewCharacterRepository(database.Pool())

	var gameSrv *gameserver.Server

	onKick := func(account string) {
		if gameSrv == nil {
			return
		}
		if client := gameSrv.ClientManager().GetClient(account); client != nil {
			slog.Info("kicked by login server", "account", account)
			client.CloseAsync()
		}
	}

	chars := &characterCensus{repo: charRepo}
	lsClient := gsdial.New(cfg, chars, onKick)

	gameSrv, err = gameserver.NewServer(cfg, lsClient, charRepo)
	if err != nil {
		return fmt.Errorf("creating game server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return lsClient.Run(gctx)
	})
	g.Go(func() error {
		return gameSrv.Run(gctx)
	})

	return g.Wait()
}

// characterCensus adapts the character repository to gsdial.CharacterSource:
// a character count plus the pending-deletion schedule the LS reports back
// to the client in ReplyChars.
type characterCensus struct {
	repo *db.CharacterRepository
}

func (c *characterCensus) CharacterCensus(ctx context.Context, account string) (int, []int64, error) {
	chars, err := c.repo.ListByAccount(ctx, account)
	if err != nil {
		return 0, nil, fmt.Errorf("listing characters for %q: %w", account, err)
	}
	schedule, err := c.repo.PendingDeletions(ctx, account)
	if err != nil {
		return 0, nil, fmt.Errorf("listing pending deletions for %q: %w", account, err)
	}
	return len(chars), schedule, nil
}
