package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	consumerconfig "nftclaim/internal/app/consumer/config"
	consumerserver "nftclaim/internal/app/consumer/server"
	"nftclaim/internal/logger"
)

func main() {
	cfg, err := consumerconfig.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer l.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := consumerserver.New(ctx, cfg, l)
	if err != nil {
		l.Fatal("failed to init consumer", zap.Error(err))
	}
	defer srv.Close()

	l.Info("consumer listening", zap.String("topic", cfg.KafkaTopic))
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		l.Fatal("consumer stopped", zap.Error(err))
	}
}
