package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/killbot/internal/bot"
	"github.com/EgorLis/killbot/internal/config"
	"github.com/EgorLis/killbot/internal/logger"
	"github.com/EgorLis/killbot/internal/subscription"
)

func main() {
	path := flag.String("config", "conf/killbot.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	store, err := subscription.Open(cfg.Store, lg)
	if err != nil {
		lg.Fatal("open store", zap.Error(err))
	}
	defer store.Close()

	mctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = store.Migrate(mctx)
	cancel()
	if err != nil {
		lg.Fatal("migrate store", zap.Error(err))
	}

	b := bot.New(cfg, lg)
	b.SetDiscord(cfg.Discord)
	b.SetESI(cfg.ESI)
	b.SetStore(store)
	if err := b.SetKillfeed(cfg.ZKill, cfg.Killmail); err != nil {
		lg.Fatal("killfeed", zap.Error(err))
	}
	b.SetOps(cfg.Ops)

	if err := b.Start(); err != nil {
		lg.Fatal("start", zap.Error(err))
	}
	defer b.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("running… press Ctrl+C to stop",
		zap.Int("static_groups", len(cfg.Killmail.Groups)),
		zap.Bool("big_kills", cfg.Killmail.BigKills),
	)

	<-ctx.Done()
	lg.Info("shutting down")
}
