// Package app wires the binaries' dependency graphs.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MeronDaniel/E-commerce-project/internal/config"
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/auth"
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/catalog"
	handler "github.com/MeronDaniel/E-commerce-project/internal/sandbox/handler/http"
	redisrepo "github.com/MeronDaniel/E-commerce-project/internal/sandbox/repository/redis"
	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/service"
	"github.com/MeronDaniel/E-commerce-project/pkg/database"
	"github.com/MeronDaniel/E-commerce-project/pkg/health"
	"github.com/MeronDaniel/E-commerce-project/pkg/tracing"
)

// Sandbox wires together all dependencies and runs the storefront sandbox.
type Sandbox struct {
	cfg            *config.Sandbox
	logger         *slog.Logger
	rdb            *redis.Client
	jwt            *auth.JWTManager
	httpServer     *http.Server
	stopBackground context.CancelFunc
	shutdownTracer func(context.Context) error
}

// NewSandbox creates the sandbox, connecting to Redis and seeding the catalog.
func NewSandbox(cfg *config.Sandbox, logger *slog.Logger) (*Sandbox, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tcfg := tracing.DefaultConfig("storefront-sandbox")
	tcfg.Environment = cfg.Environment
	tcfg.Enabled = cfg.Tracing.Enabled
	tcfg.OTLPEndpoint = cfg.Tracing.Endpoint
	tcfg.SampleRate = cfg.Tracing.SampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	database.SetSlowCommandLogging(cfg.RedisSlowThreshold, logger)
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	cat, err := catalog.New(catalog.Seed())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	repo := redisrepo.NewCartRepository(rdb, cfg.CartTTLDuration())
	cartService := service.NewCartService(repo, cat, cfg.PromoCodes, cfg.Pricing.Domain(), logger)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)

	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	bgCtx, stopBackground := context.WithCancel(context.Background())
	router := handler.NewRouter(bgCtx, cartService, service.NewProductService(cat), jwtManager.Validator(), healthHandler, logger, handler.RateLimit{
		RPS:   cfg.RateLimitRPS,
		Burst: cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Sandbox{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		jwt:            jwtManager,
		httpServer:     httpServer,
		stopBackground: stopBackground,
		shutdownTracer: shutdownTracer,
	}, nil
}

// DevToken issues an access token for userID, for local manual testing.
func (a *Sandbox) DevToken(userID string) (string, error) {
	return a.jwt.GenerateAccessToken(userID, "")
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *Sandbox) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *Sandbox) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.stopBackground()

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}
	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
