package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"smartbin/portal/internal/config"
	"smartbin/portal/internal/handler"
	"smartbin/portal/internal/model"
	"smartbin/portal/internal/observe"
	"smartbin/portal/internal/repository"
	"smartbin/portal/internal/service"
	jwtpkg "smartbin/portal/pkg/jwt"
)

const seedTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWT.SigningKey == "" {
		log.Fatal("jwt.signing_key is required")
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		stateStore = repository.NewRedisStateStore(redisClient)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 6. Initialize repositories
	userRepo := repository.NewPGUserRepository(db)
	binRepo := repository.NewPGBinRepository(db)
	submissionRepo := repository.NewPGSubmissionRepository(db)

	// 7. Initialize JWT manager
	jwtManager := jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)

	// 8. Initialize services
	limiter := service.NewLoginLimiter(stateStore, cfg.Auth.RateLimit)
	authService := service.NewAuthService(userRepo, stateStore, jwtManager, limiter, logger.Named("auth"))
	userService := service.NewUserService(userRepo, logger.Named("users"))
	binService := service.NewBinService(binRepo, userRepo, logger.Named("bins"))

	var notifier service.Notifier
	if cfg.Notify.Enabled {
		sender, err := service.NewSMTPSender(cfg.Notify.SMTP)
		if err != nil {
			logger.Fatal("failed to init smtp sender", zap.Error(err))
		}
		notifier = service.NewMailNotifier(sender, cfg.Notify.To)
		logger.Info("submission notifications enabled", zap.String("to", cfg.Notify.To))
	}
	submissionService := service.NewSubmissionService(submissionRepo, notifier, logger.Named("submissions"))

	dashboardService := service.NewDashboardService(binRepo, userRepo, submissionRepo, cfg.Dashboard, logger.Named("dashboard"))
	defer dashboardService.Close()

	// 9. Seed demo accounts
	seedCtx, seedCancel := context.WithTimeout(context.Background(), seedTimeout)
	created, err := service.NewSeedService(userRepo, userService, logger.Named("seed")).Seed(seedCtx, cfg.Auth.SeedUsers)
	seedCancel()
	if err != nil {
		logger.Fatal("failed to seed users", zap.Error(err))
	}
	if created > 0 {
		logger.Info("seeded users", zap.Int("created", created))
	}

	// 10. Initialize metrics
	var metrics *observe.Metrics
	if cfg.Metrics.Enabled {
		metrics, err = observe.NewMetrics()
		if err != nil {
			logger.Fatal("failed to init metrics", zap.Error(err))
		}
	}

	// 11. Setup router
	router := handler.SetupRouter(cfg, logger, authService, handler.Handlers{
		Auth:       handler.NewAuthHandler(authService, cfg.Auth),
		Bins:       handler.NewBinHandler(binService),
		Users:      handler.NewUserHandler(userService),
		Submission: handler.NewSubmissionHandler(submissionService, service.NewFormLimiter(stateStore, cfg.Forms)),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		Metrics:    metrics,
	})

	// 12. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 13. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 14. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := submissionService.Wait(ctx); err != nil {
		logger.Warn("pending submission notifications dropped", zap.Error(err))
	}
	if metrics != nil {
		if err := metrics.Shutdown(ctx); err != nil {
			logger.Warn("metrics shutdown failed", zap.Error(err))
		}
	}
	logger.Info("server exited gracefully")
}

// newLogger builds a JSON production logger for format "json" and a
// development logger otherwise.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level
	return zc.Build()
}
