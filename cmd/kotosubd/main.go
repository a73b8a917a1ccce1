package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/events"
	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/preflight"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/server"
	"github.com/Nexitus/KotoSub/internal/workflow"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := os.Getenv("KOTOSUB_CONFIG")
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "kotosubd.log")},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, check := range preflight.CheckEnvironment(cfg) {
		if !check.Passed {
			logger.Warn("environment check failed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail))
		}
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "kotosubd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another kotosubd instance is already running")
	}
	defer lock.Unlock() //nolint:errcheck

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	hub := events.NewHub()
	manager := workflow.NewManager(store, cfg, logger, hub, buildHandlers(cfg, store, logger, hub))
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	defer manager.Stop()

	api := server.New(cfg, logger, store, hub, manager)
	if err := api.Start(ctx); err != nil {
		return fmt.Errorf("start api server: %w", err)
	}
	defer api.Stop()

	logger.Info("kotosubd started", logging.String("address", api.Addr()))
	<-ctx.Done()
	logger.Info("kotosubd shutting down")
	return nil
}
