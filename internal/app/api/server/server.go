package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"nftclaim/internal/app/api/config"
	"nftclaim/internal/app/api/router"
	"nftclaim/internal/db"
	"nftclaim/internal/distributor"
	"nftclaim/internal/domain/distribution"
	"nftclaim/internal/kafka"
	"nftclaim/internal/ledger"
	"nftclaim/internal/messaging/claim"
	redispkg "nftclaim/internal/redis"
	"nftclaim/internal/system"
)

// Server wires infrastructure dependencies for the API service.
type Server struct {
	cfg        config.Config
	logger     *zap.Logger
	httpServer *http.Server
	store      *db.Store
	redis      *redispkg.Client
	producer   *kafka.Producer
}

// New constructs the server and underlying dependencies.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	accounts, err := s.openLedger()
	if err != nil {
		return nil, err
	}
	if cfg.GenesisPath != "" {
		genesis, err := ledger.LoadGenesis(cfg.GenesisPath)
		if err != nil {
			return nil, err
		}
		if err := ledger.ApplyGenesis(ctx, accounts, genesis); err != nil {
			return nil, fmt.Errorf("applying genesis: %w", err)
		}
		logger.Info("genesis applied", zap.Int("accounts", len(genesis)), zap.String("path", cfg.GenesisPath))
	}

	executor := ledger.NewExecutor(accounts, logger.Named("ledger"))
	executor.Register(system.ProgramID, system.Program{})
	executor.Register(distributor.ProgramID, distributor.NewProcessor(distributor.WithLogger(logger.Named("distributor"))))

	deps := router.Dependencies{
		Service: distribution.NewService(executor, distributor.ProgramID, logger.Named("distribution")),
		Logger:  logger,
	}

	if cfg.AuditEnabled {
		store, err := db.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.store = store
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		deps.Claims = store
	}

	if cfg.EventsEnabled {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		s.producer = producer
		deps.Publisher = claim.NewPublisher(producer)
	}

	s.httpServer = &http.Server{Addr: ":" + cfg.Port, Handler: router.New(deps)}
	ok = true
	return s, nil
}

func (s *Server) openLedger() (ledger.Store, error) {
	switch s.cfg.LedgerBackend {
	case config.LedgerMemory, "":
		return ledger.NewMemoryStore(), nil
	case config.LedgerRedis:
		client, err := redispkg.New(s.cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		s.redis = client
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", s.cfg.LedgerBackend)
	}
}

// Run starts the HTTP server and blocks until ctx is canceled or fatal error occurs.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Close releases infrastructure resources.
func (s *Server) Close() {
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.producer != nil {
		_ = s.producer.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}
