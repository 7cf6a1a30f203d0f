package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/murmur/internal/account"
	"github.com/lalith-99/murmur/internal/api"
	"github.com/lalith-99/murmur/internal/config"
	"github.com/lalith-99/murmur/internal/db"
	"github.com/lalith-99/murmur/internal/feed"
	"github.com/lalith-99/murmur/internal/observ"
	"github.com/lalith-99/murmur/internal/ratelimit"
	"github.com/lalith-99/murmur/internal/repository"
	"github.com/lalith-99/murmur/internal/repository/memory"
	"github.com/lalith-99/murmur/internal/repository/postgres"
	"github.com/lalith-99/murmur/internal/repository/sqlite"
	"github.com/lalith-99/murmur/internal/retention"
	"github.com/lalith-99/murmur/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Config and logger
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 2. Store
	// ---------------------------------------------------------------
	store, health, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// ---------------------------------------------------------------
	// 3. Redis: sessions and the shared rate limiter
	// ---------------------------------------------------------------
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		logger.Info("redis connection established")
	}

	var sessions session.Store
	if redisClient != nil {
		sessions = session.NewRedisStoreWithClient(redisClient)
	} else {
		logger.Warn("REDIS_URL is empty, sessions are kept in process memory")
		sessions = session.NewMemoryStore()
	}

	messageLimiter, authLimiter, err := newLimiters(cfg, redisClient)
	if err != nil {
		return err
	}

	// ---------------------------------------------------------------
	// 4. Metrics, retention and services
	// ---------------------------------------------------------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observ.NewMetrics(reg)

	sweeper := retention.NewSweeper(store.Messages, cfg.RetentionWindow, logger, retention.WithMetrics(metrics))

	// Clear whatever expired while the server was down; after this every
	// insert prunes in its own transaction.
	if _, err := sweeper.Sweep(ctx); err != nil {
		return fmt.Errorf("startup sweep: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.Deps{
		Store:          store,
		Feed:           feed.NewService(store, sweeper, metrics, logger),
		Accounts:       account.NewService(store, sessions, cfg.JWTSecret, cfg.TokenTTL, logger),
		Sessions:       sessions,
		JWTSecret:      cfg.JWTSecret,
		MessageLimiter: messageLimiter,
		AuthLimiter:    authLimiter,
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Health:         health,
		Logger:         logger,
	})

	// ---------------------------------------------------------------
	// 5. Serve until SIGINT/SIGTERM
	// ---------------------------------------------------------------
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting murmur",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver),
			zap.Duration("retention", sweeper.Window()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore connects the configured driver and returns its health probe.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		store := postgres.NewStore(database.Pool())
		store.Close = database.Close
		return store, database.Health, nil

	case config.DriverSQLite:
		gdb, err := db.OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite handle: %w", err)
		}
		store, err := sqlite.NewStore(gdb)
		if err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return store, sqlDB.PingContext, nil

	default:
		logger.Warn("using the in-memory store, nothing survives a restart")
		return memory.NewStore(memory.New()), nil, nil
	}
}

func connectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func newLimiters(cfg *config.Config, client *redis.Client) (messages, auth ratelimit.Limiter, err error) {
	if cfg.RateLimitBackend == config.BackendLocal {
		return ratelimit.NewLocal(cfg.MessageRatePerSec, time.Second),
			ratelimit.NewLocal(cfg.AuthRatePerMin, time.Minute), nil
	}

	messages, err = ratelimit.NewFixedWindow(client, "murmur:ratelimit", cfg.MessageRatePerSec, time.Second)
	if err != nil {
		return nil, nil, fmt.Errorf("message rate limiter: %w", err)
	}
	auth, err = ratelimit.NewFixedWindow(client, "murmur:ratelimit", cfg.AuthRatePerMin, time.Minute)
	if err != nil {
		return nil, nil, fmt.Errorf("auth rate limiter: %w", err)
	}
	return messages, auth, nil
}
