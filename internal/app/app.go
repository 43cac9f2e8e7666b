package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pocketsnooze/snoozerd/internal/auth"
	"github.com/pocketsnooze/snoozerd/internal/config"
	"github.com/pocketsnooze/snoozerd/internal/httpserver"
	"github.com/pocketsnooze/snoozerd/internal/httpserver/deps"
	"github.com/pocketsnooze/snoozerd/internal/logger"
	"github.com/pocketsnooze/snoozerd/internal/pocket"
	"github.com/pocketsnooze/snoozerd/internal/reconcile"
	"github.com/pocketsnooze/snoozerd/internal/redis"
	"github.com/pocketsnooze/snoozerd/internal/scheduler"
	"github.com/pocketsnooze/snoozerd/internal/snooze"
	redisstore "github.com/pocketsnooze/snoozerd/internal/store/redis"
	"github.com/pocketsnooze/snoozerd/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	wake        *scheduler.WakeScheduler
	watchCancel context.CancelFunc
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	// Snooze store on top of the shared Redis instance
	store := redisstore.NewStore(redisClient)

	// Pocket API gateway; reads the token from the store on every call
	gateway := pocket.NewClient(pocket.ClientOptions{
		BaseURL:     cfg.PocketBaseURL,
		ConsumerKey: cfg.PocketConsumerKey,
		Tokens:      store,
		Logger:      loggerClient,
	})

	authenticator := auth.New(auth.Options{
		Gateway:     gateway,
		Store:       store,
		WebBaseURL:  cfg.PocketWebBaseURL,
		RedirectURI: cfg.PocketRedirectURI,
		Logger:      loggerClient,
	})

	// Wake-time defaults, optionally overridden by the settings file
	wakeDefaults, err := config.LoadWakeDefaults(cfg.SettingsFile)
	if err != nil {
		loggerClient.Warn("failed to load settings file, using built-in defaults",
			logger.Error(err))
	}

	// Reconciler resolves due items against Pocket and refreshes metadata
	// afterwards via a forced sync. The service is created after the
	// scheduler, so the callback closes over the variable.
	var service *snooze.Service
	reconciler := reconcile.New(reconcile.Options{
		Store:   store,
		Gateway: gateway,
		Logger:  loggerClient,
		OnComplete: func(ctx context.Context) error {
			return service.Sync(ctx, true)
		},
	})

	// Subscription to cross-device change announcements
	watchCtx, watchCancel := context.WithCancel(context.Background())
	changes := store.Watch(watchCtx)

	wake := scheduler.New(scheduler.Options{
		Items:        store,
		Reconciler:   reconciler,
		Logger:       loggerClient,
		Fallback:     cfg.FallbackInterval,
		Grace:        cfg.StartupGrace,
		RetryBackoff: cfg.RetryBackoff,
		Changes:      changes,
	})

	service = snooze.New(snooze.Options{
		Store:        store,
		Gateway:      gateway,
		Planner:      wake,
		Logger:       loggerClient,
		SyncInterval: cfg.SyncInterval,
	})

	d := deps.Deps{
		Logger:           loggerClient,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		TimeNow:          time.Now,
		AllowedCIDRS:     cfg.AllowedCIDRS,
		TrustProxy:       cfg.TrustProxy,
		Snoozes:          service,
		Auth:             authenticator,
		Settings:         store,
		SettingsDefaults: wakeDefaults,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		wake:        wake,
		watchCancel: watchCancel,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting snoozerd v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("snoozerd %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the wake scheduler (schedules the startup due-check)
	if err := a.wake.Start(ctx); err != nil {
		return fmt.Errorf("failed to start wake scheduler: %w", err)
	}
	a.logger.Info("wake scheduler started",
		logger.Duration("startup_grace", a.cfg.StartupGrace),
		logger.Duration("fallback", a.cfg.FallbackInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Stop wake handling and the change subscription
	a.wake.Stop()
	a.watchCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ snoozerd stopped cleanly")
	return nil
}
