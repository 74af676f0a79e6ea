package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	apiconfig "nftclaim/internal/app/api/config"
	apiserver "nftclaim/internal/app/api/server"
	"nftclaim/internal/logger"
)

func main() {
	cfg, err := apiconfig.Load()
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

	srv, err := apiserver.New(ctx, cfg, l)
	if err != nil {
		l.Fatal("failed to initialize api server", zap.Error(err))
	}
	defer srv.Close()

	l.Info("api listening", zap.String("port", cfg.Port), zap.String("ledger", cfg.LedgerBackend))
	if err := srv.Run(ctx); err != nil {
		l.Fatal("api server stopped", zap.Error(err))
	}
}
