package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/Blockchain-Oracle/aptoTip-sub000/internal/adapters/cache"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/adapters/chain"
	eventadapter "github.com/Blockchain-Oracle/aptoTip-sub000/internal/adapters/events"
	grpcadapter "github.com/Blockchain-Oracle/aptoTip-sub000/internal/adapters/grpc"
	httpadapter "github.com/Blockchain-Oracle/aptoTip-sub000/internal/adapters/http"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/adapters/postgres"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/adapters/security"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/application"
	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

// topicByEvent routes outbox event types to broker topics.
var topicByEvent = map[string]string{
	"tip.confirmed":   "aptotip.tips.v1",
	"profile.created": "aptotip.profiles.v1",
	"profile.updated": "aptotip.profiles.v1",
}

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping tipping service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	sessionStore := cacheadapter.NewRedisAuthSessionStore(redisClient)
	verifier := security.NewOIDCVerifier(security.OIDCVerifierConfig{
		HTTPClient: &http.Client{Timeout: cfg.OIDCHTTPTimeout},
		Providers: map[string]security.OIDCProviderConfig{
			"google": {
				IssuerURL:    cfg.OIDCGoogleIssuerURL,
				ClientID:     cfg.OIDCGoogleClientID,
				ClientSecret: cfg.OIDCGoogleClientSecret,
				Scopes:       cfg.OIDCGoogleScopes,
			},
		},
	})
	deriver := security.NewKeylessDeriver([]string{cfg.OIDCGoogleIssuerURL})

	sponsor, err := chain.NewSponsorAccount(cfg.SponsorPrivateKeyHex)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("load sponsor account: %w", err)
	}
	chainClient, err := chain.NewClient(chain.ClientConfig{
		NodeURL:                  cfg.ChainNodeURL,
		Sponsor:                  sponsor,
		ContractAddress:          cfg.ContractAddress,
		MaxGasAmount:             cfg.MaxGasAmount,
		GasUnitPrice:             cfg.GasUnitPrice,
		TransactionTTL:           cfg.TransactionTTL,
		ConfirmationTimeout:      cfg.ConfirmationTimeout,
		ConfirmationPollInterval: cfg.ConfirmationPollInterval,
	})
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init chain client: %w", err)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			DefaultProvider:     "google",
			ContractAddress:     cfg.ContractAddress,
			AllowedRedirectURIs: cfg.AllowedRedirectURIs,
			EphemeralKeyTTL:     cfg.EphemeralKeyTTL,
			IdempotencyTTL:      cfg.IdempotencyTTL,
			SubmitMaxAttempts:   cfg.SubmitMaxAttempts,
			SubmitRetryBackoff:  cfg.SubmitRetryBackoff,
			OctasPerCent:        cfg.OctasPerCent,
		},
		Profiles:    repos.Profiles,
		Tips:        repos.Tips,
		Outbox:      repos.Outbox,
		Idempotency: repos.Idempotency,
		Sessions:    sessionStore,
		Verifier:    verifier,
		Deriver:     deriver,
		Chain:       chainClient,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewTippingInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	var publisher ports.EventPublisher = eventadapter.NewLoggingPublisher(logger)
	var closePublisher func() error
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, topicByEvent)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
		closePublisher = kafkaPublisher.Close
	}

	outbox := eventadapter.NewOutboxWorker(logger, repos.Outbox, publisher, eventadapter.WorkerConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		ClaimTTL:     cfg.OutboxClaimTTL,
		MaxRetries:   cfg.OutboxMaxRetries,
	})

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		cleanupFn: func(ctx context.Context) {
			if closePublisher != nil {
				_ = closePublisher()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
