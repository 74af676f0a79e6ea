package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	consumerconfig "nftclaim/internal/app/consumer/config"
	"nftclaim/internal/db"
	"nftclaim/internal/domain/distribution"
	"nftclaim/internal/kafka"
	"nftclaim/internal/messaging/claim"
)

// Server hosts the Kafka consumer workflow.
type Server struct {
	cfg      consumerconfig.Config
	logger   *zap.Logger
	store    *db.Store
	consumer *claim.Consumer
	metrics  *http.Server
}

// New builds the consumer server and supporting dependencies.
func New(ctx context.Context, cfg consumerconfig.Config, logger *zap.Logger) (*Server, error) {
	store, err := db.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}

	handler := distribution.NewRecorder(store, logger.Named("recorder"))
	eventConsumer, err := claim.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, cfg.KafkaTopic, handler, logger.Named("kafka"),
		kafka.WithRetry(cfg.RetryAttempts, cfg.RetryBackoff))
	if err != nil {
		store.Close()
		return nil, err
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		consumer: eventConsumer,
		metrics:  metricsSrv,
	}, nil
}

// Run starts consuming distribution events until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if s.metrics != nil {
		go func() {
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("consumer metrics server stopped", zap.Error(err))
			}
		}()
		s.logger.Info("consumer metrics listening", zap.String("addr", s.cfg.MetricsAddr))
	}
	return s.consumer.Start(ctx)
}

// Close releases resources.
func (s *Server) Close() {
	if s.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.Shutdown(shutdownCtx)
	}
	if s.consumer != nil {
		_ = s.consumer.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}
