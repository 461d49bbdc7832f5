package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"sydai_backend/internal/api"
	"sydai_backend/internal/cache"
	"sydai_backend/internal/middleware"
	"sydai_backend/internal/repository"
	"sydai_backend/internal/repository/memory"
	"sydai_backend/internal/seed"
	"sydai_backend/internal/service"
	"sydai_backend/pkg/auth"
	"sydai_backend/pkg/logger"
	"sydai_backend/pkg/telemetry"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		zapLogger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	store, err := openStore(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer store.Close()

	if cfg.Seed {
		if _, err := seed.Run(ctx, store, time.Now()); err != nil {
			zapLogger.Fatal("Failed to seed demo users", zap.Error(err))
		}
	}

	// Interface values stay nil without Redis so rate limiting and revocation switch off.
	var (
		limiter middleware.Limiter
		revoker auth.Revoker
	)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.New(ctx, cfg.Redis)
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		limiter, revoker = rdb, rdb
	} else {
		zapLogger.Info("Redis not configured, rate limiting and session revocation disabled")
	}

	ledger := service.NewLedgerService(store)
	notifications := service.NewNotificationService(store, store, service.NewNotificationHub())
	referrals := service.NewReferralService(store, notifications, cfg.Referral.BaseURL)
	svc := service.NewService(
		service.NewUserService(store, store, notifications, referrals),
		service.NewCheckinService(ledger, notifications, service.WithLocation(cfg.Location())),
		referrals,
		service.NewLeaderboardService(store),
		notifications,
		service.NewChatService(store, ledger),
		service.NewSettingsService(store),
	)

	sessions := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, revoker, cfg.Session.SecureCookie)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	config := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		config.AllowOrigins = cfg.Server.AllowedOrigins
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.RegisterRoutes(a, api.Dependencies{
		Service:  svc,
		Sessions: sessions,
		Limiter:  limiter,
		Limits: api.RateLimits{
			Messages: cfg.RateLimit.Messages,
			Checkins: cfg.RateLimit.Checkins,
			Window:   cfg.RateLimit.Window,
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("Server stopped with error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLogger.Warn("Failed to flush traces", zap.Error(err))
	}
}

func openStore(cfg repository.Config) (service.Store, error) {
	if cfg.Driver == repository.DriverMemory {
		logger.Logger().Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
	repo, err := repository.New(cfg)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
