package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"rythmx/internal/config"
	"rythmx/internal/daemon"
	"rythmx/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.LogPath(),
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	comps, err := buildComponents(cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", logging.Error(err))
		return
	}

	d, err := daemon.New(cfg, comps, logger)
	if err != nil {
		logger.Error("create daemon failed", logging.Error(err))
		return
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("shutdown cleanup", logging.Error(err))
		}
	}()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("shutting down")
}
