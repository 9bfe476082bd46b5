// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis_rate/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/bloodlink/internal/admin"
	"github.com/carterperez-dev/bloodlink/internal/auth"
	"github.com/carterperez-dev/bloodlink/internal/config"
	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/donation"
	"github.com/carterperez-dev/bloodlink/internal/health"
	"github.com/carterperez-dev/bloodlink/internal/metrics"
	"github.com/carterperez-dev/bloodlink/internal/middleware"
	"github.com/carterperez-dev/bloodlink/internal/model"
	"github.com/carterperez-dev/bloodlink/internal/search"
	"github.com/carterperez-dev/bloodlink/internal/seed"
	"github.com/carterperez-dev/bloodlink/internal/server"
	"github.com/carterperez-dev/bloodlink/internal/store"
	"github.com/carterperez-dev/bloodlink/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// backend bundles whatever the configured store driver opened so run can
// wire health checks, admin stats and cleanup without caring which it was.
type backend struct {
	store    store.Store
	sessions store.SessionStore
	purger   admin.SessionPurger
	db       *core.Database
}

func openStore(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*backend, error) {
	var driver string
	switch cfg.Store.Driver {
	case config.StoreMemory:
		logger.Info("using in-memory store")
		mem := store.NewMemory()
		return &backend{store: mem, sessions: mem, purger: mem}, nil
	case config.StoreSQLite:
		driver = core.DriverSQLite
	case config.StorePostgres:
		driver = core.DriverPgx
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	db, err := core.NewDatabase(ctx, driver, cfg.Database)
	if err != nil {
		return nil, err
	}

	sqlStore := store.NewSQL(db.DB)
	if err := sqlStore.Migrate(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // cleanup on migration failure
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("database connected",
		"driver", driver,
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)
	return &backend{
		store:    sqlStore,
		sessions: sqlStore,
		purger:   sqlStore,
		db:       db,
	}, nil
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"store", cfg.Store.Driver,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	be, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var (
		rdb      *core.Redis
		rclient  *goredis.Client
		sessions = be.sessions
	)
	if cfg.Redis.Enabled() {
		rdb, err = core.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		rclient = rdb.Client
		sessions = store.NewRedisSessions(rdb.Client)
		logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)
	}

	if cfg.Seed.Demo {
		loaded, seedErr := seed.Demo(ctx, be.store)
		if seedErr != nil {
			return seedErr
		}
		if !loaded {
			logger.Info("store not empty, demo data skipped")
		}
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	userSvc := user.NewService(be.store, m, logger)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(
		jwtManager, userSvc, sessions, m, cfg.Session.TTL, logger,
	)
	authHandler := auth.NewHandler(authSvc)

	searchHandler := search.NewHandler(search.NewService(be.store, m))

	donationSvc := donation.NewService(be.store, m, logger)
	donationHandler := donation.NewHandler(donationSvc)

	adminCfg := admin.HandlerConfig{
		Store:     be.store,
		Donations: donationSvc,
		Purger:    be.purger,
	}
	var checks []health.Check
	if be.db != nil {
		checks = append(checks, health.Check{Name: "database", Checker: be.db})
		adminCfg.DBStats = be.db.Stats
		adminCfg.DBPing = be.db.Ping
	}
	if rdb != nil {
		checks = append(checks, health.Check{Name: "redis", Checker: rdb})
		adminCfg.RedisStats = rdb.PoolStats
		adminCfg.RedisPing = rdb.Ping
	}
	healthHandler := health.NewHandler(checks...)
	adminHandler := admin.NewHandler(adminCfg)

	adminKey := cfg.Admin.APIKey
	if adminKey == "" {
		// An unguessable key nobody holds keeps the routes mounted but shut.
		adminKey, err = core.GenerateSecureToken(32)
		if err != nil {
			return err
		}
		logger.Warn("ADMIN_API_KEY not set, admin endpoints are disabled")
	}

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(m.Middleware)
	router.Use(
		middleware.NewRateLimiter(rclient, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			Skip: middleware.SkipOperational,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())
	router.Handle("/metrics", m.Handler())

	authenticator := withRoleLimits(
		middleware.Authenticator(authSvc),
		middleware.RoleRateLimiter(rclient, map[string]redis_rate.Limit{
			string(model.RoleHospital): middleware.PerMinute(
				cfg.RateLimit.Requests*2,
				cfg.RateLimit.Burst*2,
			),
		}, middleware.PerMinute(cfg.RateLimit.Requests, cfg.RateLimit.Burst)),
	)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterRoutes(r, authenticator)
		searchHandler.RegisterRoutes(r, authenticator)
		donationHandler.RegisterRoutes(r, authenticator)
		adminHandler.RegisterRoutes(r, middleware.RequireAPIKey(adminKey))
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	if be.db != nil {
		if err := be.db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}

	logger.Info("application stopped")
	return nil
}

// withRoleLimits runs the per-role limiter after authentication, since it
// keys on the caller's role and user id.
func withRoleLimits(
	authenticate, limit func(http.Handler) http.Handler,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return authenticate(limit(next))
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
