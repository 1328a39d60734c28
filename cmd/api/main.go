package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/admission-core/internal/admission"
	httptransport "github.com/spec-kit/admission-core/internal/api/http"
	"github.com/spec-kit/admission-core/internal/api/http/handlers"
	"github.com/spec-kit/admission-core/internal/authz"
	"github.com/spec-kit/admission-core/internal/config"
	"github.com/spec-kit/admission-core/internal/events"
	"github.com/spec-kit/admission-core/internal/observability"
	"github.com/spec-kit/admission-core/internal/persistence"
	"github.com/spec-kit/admission-core/internal/ratelimit"
	"github.com/spec-kit/admission-core/internal/repository"
	"github.com/spec-kit/admission-core/internal/service"
	"github.com/spec-kit/admission-core/internal/store"
	"github.com/spec-kit/admission-core/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	counterStore := store.NewRedisStore(redis.Client)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	authzRepo := repository.NewAuthzRepository(pool)

	permCache := authz.NewPermissionCache(counterStore, cfg.Cache.PermissionTTL, logger, metrics)
	menuCache := authz.NewMenuCache(counterStore, cfg.Cache.MenuTTL, logger, metrics)
	sessionCache := authz.NewSessionCache(counterStore, cfg.Cache.PermissionTTL, logger, metrics)
	resolver := authz.NewResolver(authzRepo, permCache, menuCache, sessionCache, logger, cfg.Postgres.QueryTimeout)

	limiter := ratelimit.NewLimiter(counterStore, logger, metrics, cfg.Redis.OpTimeout)
	codec := token.NewCodec(cfg.Auth)

	dispatcher := events.NewInMemoryDispatcher()
	service.RegisterInvalidationHandlers(dispatcher, resolver)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Resolver:          resolver,
		Sessions:          sessionCache,
		Codec:             codec,
		Dispatcher:        dispatcher,
	})
	adminService := service.NewAuthzAdminService(authzRepo, dispatcher)

	admissionMiddleware := admission.NewAdmissionMiddleware(codec, cfg.App, cfg.CORS, cfg.Auth.VerifyMode, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:      handlers.NewAuthHandler(authService),
		Me:        handlers.NewMeHandler(resolver),
		Admin:     handlers.NewAdminHandler(adminService),
		RateLimit: handlers.NewRateLimitHandler(limiter),
		Admission: admissionMiddleware,
		Limiter:   limiter,
		Resolver:  resolver,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
