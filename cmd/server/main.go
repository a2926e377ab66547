package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/storelane/auth-engine/internal/app"
	"github.com/storelane/auth-engine/internal/config"
	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/http/cookie"
	"github.com/storelane/auth-engine/internal/http/handler"
	"github.com/storelane/auth-engine/internal/http/middleware"
	"github.com/storelane/auth-engine/internal/http/router"
	"github.com/storelane/auth-engine/internal/observability"
	"github.com/storelane/auth-engine/internal/repository"
	"github.com/storelane/auth-engine/internal/security"
	"github.com/storelane/auth-engine/internal/service"
)

func main() {
	root := &cobra.Command{
		Use:          "auth-engine",
		Short:        "Storelane session and token lifecycle service",
		SilenceUsage: true,
	}
	root.AddCommand(serveCommand())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerProvider, err := observability.InitLogging(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	runtime, err := observability.InitRuntime(ctx, cfg, logger, loggerProvider)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&domain.Account{}, &domain.Session{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}

	accounts := repository.NewAccountRepository(db)
	sessions := repository.NewSessionRepository(db)

	jwtMgr := security.NewJWTManager(
		cfg.JWTIssuer,
		[]byte(cfg.JWTAccessSecret),
		[]byte(cfg.JWTRefreshSecret),
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	authService := service.NewAuthService(accounts, sessions, jwtMgr, hasher, cfg.RefreshTokenPepper)
	sessionService := service.NewSessionService(sessions)

	cookies := cookie.NewManager(cfg.CookieSecure, cfg.CookieSameSite, cfg.RefreshTokenTTL)

	deps := router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authService, cookies, cfg.AccessTokenTTL),
		SessionHandler:   handler.NewSessionHandler(sessionService),
		JWTManager:       jwtMgr,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		ReadinessCheck:   readinessCheck(db, redisClient),
		EnableOTelHTTP:   cfg.OTELTracingEnabled,
	}
	if redisClient != nil {
		limiter := middleware.NewRedisFixedWindowLimiter(redisClient)
		deps.AuthRateLimiter = middleware.NewRateLimiter(limiter, cfg.AuthRateLimitRPM, time.Minute, middleware.FailClosed, "auth").Middleware()
		deps.APIRateLimiter = middleware.NewRateLimiter(limiter, cfg.APIRateLimitRPM, time.Minute, middleware.FailOpen, "api").Middleware()
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(deps),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	sweeper := service.NewSessionSweeper(sessions, cfg.SessionSweepInterval, logger)

	return app.New(cfg, logger, server, sweeper, runtime).Run(ctx)
}

func readinessCheck(db *gorm.DB, redisClient *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
