package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cacheadapter "github.com/talentbase/auth-service/internal/adapters/cache"
	eventadapter "github.com/talentbase/auth-service/internal/adapters/events"
	httpadapter "github.com/talentbase/auth-service/internal/adapters/http"
	"github.com/talentbase/auth-service/internal/adapters/postgres"
	"github.com/talentbase/auth-service/internal/adapters/security"
	"github.com/talentbase/auth-service/internal/application"
	"github.com/talentbase/auth-service/internal/domain"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	outbox     *eventadapter.OutboxWorker
	sweeper    *eventadapter.TokenSweeper
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping auth service", "http_port", cfg.HTTPPort, "production", cfg.Production)
	if cfg.JWTSecret == devJWTSecret {
		logger.Warn("JWT_SECRET not set; using insecure development secret")
	}

	pool, err := postgres.Connect(ctx, postgres.Settings{
		URL:          cfg.DatabaseURL,
		MaxOpenConns: cfg.MaxDBConns,
	})
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
		return nil, fmt.Errorf("init redis client: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	codec, err := security.NewJWTCodec(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init jwt codec: %w", err)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			DefaultRole:          domain.Role(cfg.DefaultRole),
			FailedLoginThreshold: cfg.FailedThreshold,
			LockoutDuration:      cfg.LockoutDuration,
		},
		Users:         repos.Users,
		Profiles:      repos.Profiles,
		RefreshTokens: repos.RefreshTokens,
		Outbox:        repos.Outbox,
		Lockouts:      cacheadapter.NewRedisLockoutStore(redisClient),
		Hasher:        security.NewBcryptHasher(cfg.BcryptCost),
		Codec:         codec,
	})

	handler := httpadapter.NewHandler(svc, codec, httpadapter.CookieOptions{
		Production:    cfg.Production,
		AccessMaxAge:  cfg.AccessTTL,
		RefreshMaxAge: cfg.RefreshTTL,
	})
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		eventadapter.NewLoggingPublisher(logger),
		eventadapter.WorkerOptions{
			PollInterval: cfg.OutboxPollInterval,
			BatchSize:    cfg.OutboxBatchSize,
			ClaimTTL:     cfg.OutboxClaimTTL,
			MaxRetries:   cfg.OutboxMaxRetries,
		},
	)
	sweeper := eventadapter.NewTokenSweeper(logger, repos.RefreshTokens, cfg.SweepInterval, cfg.SweepRetention)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		outbox:     outbox,
		sweeper:    sweeper,
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
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
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("outbox worker started")
		errCh <- r.outbox.Run(ctx)
	}()
	go func() {
		r.logger.Info("token sweeper started")
		errCh <- r.sweeper.Run(ctx)
	}()

	err := <-errCh
	stop()
	<-errCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
