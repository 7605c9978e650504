package app

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

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/hearth/internal/auth/domain"
	"github.com/aussiebroadwan/hearth/internal/auth/gate"
	httpapi "github.com/aussiebroadwan/hearth/internal/auth/http"
	"github.com/aussiebroadwan/hearth/internal/auth/ratelimit"
	"github.com/aussiebroadwan/hearth/internal/auth/revocation"
	"github.com/aussiebroadwan/hearth/internal/auth/service"
	"github.com/aussiebroadwan/hearth/internal/auth/store"
	"github.com/aussiebroadwan/hearth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/hearth/pkg/cryptox"
	"github.com/aussiebroadwan/hearth/pkg/httpx"
	"github.com/aussiebroadwan/hearth/pkg/jwtx"
	"github.com/aussiebroadwan/hearth/pkg/slogx"
)

// BuildVersion is overridden at build time with
// -ldflags "-X github.com/aussiebroadwan/hearth/internal/auth/app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	codec     *jwtx.Codec
	redis     redis.UniversalClient // nil without REDIS_URL
	blacklist revocation.Store
	counters  ratelimit.CounterStore

	// Services
	tokenService        *service.TokenService
	userService         *service.UserService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	gate   *gate.Gate
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	slog.SetDefault(app.logger)

	if err := cryptox.LoadPepper(app.cfg.PepperFile); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	codec, err := InitCodec(app.cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.codec = codec

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSharedStores(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	if err := app.seedAdmin(); err != nil {
		app.close()
		return nil, err
	}
	app.initHousekeeping()
	app.initHTTP()

	return app, nil
}

// Handler exposes the routed handler, used by in-process tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		app.close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.close(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) close() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initSharedStores picks the blacklist and rate counter backends. Without
// REDIS_URL both live in process memory, which only suits a single replica.
func (app *Application) initSharedStores() error {
	if app.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts.ReadTimeout = app.cfg.StoreTimeout
		opts.WriteTimeout = app.cfg.StoreTimeout
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to reach redis: %w", err)
		}
		app.redis = client
		app.counters = ratelimit.NewRedis(client)
		app.logger.Info("redis connected", "addr", opts.Addr)
	} else {
		app.counters = ratelimit.NewMemory(time.Now)
	}

	switch app.cfg.BlacklistBackend {
	case BackendRedis:
		app.blacklist = revocation.NewRedis(app.redis, time.Now)
	default:
		app.blacklist = revocation.NewMemory(time.Now)
		app.logger.Warn("blacklist is process local, revocations do not reach other replicas")
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Codec:            app.codec,
		Store:            app.db,
		Blacklist:        app.blacklist,
		StoreTimeout:     app.cfg.StoreTimeout,
		RevokedRetention: app.cfg.RevokedRetention,
	}

	app.userService = &service.UserService{
		Store:        app.db,
		StoreTimeout: app.cfg.StoreTimeout,
	}
	app.bootstrapService = &service.BootstrapService{Users: app.userService}
}

func (app *Application) seedAdmin() error {
	if app.cfg.AdminUsername == "" {
		return nil
	}

	ctx := slogx.WithContext(context.Background(), app.logger)
	_, err := app.bootstrapService.SeedAdmin(ctx, domain.BootstrapData{
		AdminUsername: app.cfg.AdminUsername,
		AdminPassword: app.cfg.AdminPassword,
	})
	if err != nil && !errors.Is(err, service.ErrBootstrapAlready) {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	return nil
}

func (app *Application) initHousekeeping() {
	hk := service.NewHousekeepingService(app.logger)

	hk.AddJob("blacklist_sweep", app.cfg.BlacklistSweepInterval, func(ctx context.Context) (int64, error) {
		n, err := app.blacklist.Sweep(ctx, time.Now())
		return int64(n), err
	})
	hk.AddJob("refresh_cleanup", app.cfg.RefreshCleanupInterval, app.tokenService.CleanupJob)

	if mem, ok := app.counters.(*ratelimit.Memory); ok {
		hk.AddJob("ratelimit_sweep", app.cfg.RateLimitWindow, func(context.Context) (int64, error) {
			return int64(mem.Sweep(time.Now())), nil
		})
	}

	app.housekeepingService = hk
}

// initHTTP initializes the gate, router and server
func (app *Application) initHTTP() {
	rateKey := httpx.IPKeyExtractor
	if app.cfg.TrustProxyHeaders {
		rateKey = httpx.ForwardedIPKeyExtractor
	}

	app.gate = &gate.Gate{
		Policy: gate.NewPolicy(app.cfg.PublicPaths),
		Limiter: ratelimit.New(app.counters, ratelimit.Config{
			Window:      app.cfg.RateLimitWindow,
			MaxRequests: app.cfg.RateLimitMaxRequests,
		}),
		RateKey:      rateKey,
		Codec:        app.codec,
		Blacklist:    app.blacklist,
		StoreTimeout: app.cfg.StoreTimeout,
	}

	router := httpapi.NewRouter(app.gate, app.codec, BuildVersion, app.db, app.logger)
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.CredentialLimit = httpx.ParseRateLimitFromEnv("CREDENTIALS", httpx.CredentialLimit)
	router.AdminLimit = httpx.ParseRateLimitFromEnv("ADMIN", httpx.AdminLimit)
	router.RateKey = rateKey
	if rc, ok := app.counters.(*ratelimit.Redis); ok {
		router.Redis = rc
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
