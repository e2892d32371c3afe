package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gin-rw-views/internal/api"
	"gin-rw-views/internal/cache"
	"gin-rw-views/internal/config"
	"gin-rw-views/internal/db"
	"gin-rw-views/internal/logging"
	"gin-rw-views/internal/metrics"
	"gin-rw-views/pkg/rwviews"
)

func main() {
	os.Exit(serve())
}

// serve runs the service and returns the process exit code once every
// deferred cleanup has run.
func serve() int {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("failed loading config: %v", err)
		return 1
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Printf("failed creating logger: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	membershipCache, closeCache, err := newCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	store, err := db.NewStore(ctx, cfg.PostgresDSN, membershipCache, logger.Named("db"))
	if err != nil {
		return errors.Wrap(err, "failed connecting to postgres")
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		return errors.Wrap(err, "failed initializing database")
	}

	httpMetrics := metrics.New(nil)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(logging.Middleware(logger), logging.Recovery(logger), httpMetrics.Middleware())
	router.GET("/metrics", httpMetrics.Handler())

	if err := api.Register(router, api.Options{
		Users:       store.Users(),
		Groups:      store.Groups(),
		PageSize:    cfg.API.PageSize,
		MaxPageSize: cfg.API.MaxPageSize,
		BcryptCost:  cfg.API.BcryptCost,
		Health:      store.Ping,
		Logger:      logger.Named("api"),
	}); err != nil {
		return errors.Wrap(err, "failed registering routes")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("cache_mode", cfg.Cache.Mode),
			zap.String("version", rwviews.Version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newCache builds the membership cache for the configured mode.
func newCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.Cache, func(), error) {
	mode, err := cache.ParseMode(cfg.Cache.Mode)
	if err != nil {
		return nil, nil, err
	}

	var (
		l1      cache.RawCache
		l2      cache.RawCache
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if mode != cache.ModeL2Only {
		bigCache, err := cache.NewBigCache(ctx, bigcache.Config{Shards: cfg.Cache.Shards})
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed creating bigcache")
		}
		closers = append(closers, func() { _ = bigCache.Close() })
		l1 = bigCache
	}

	if mode != cache.ModeL1Only {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			closeAll()
			return nil, nil, errors.Wrapf(err, "failed connecting to redis at %s", cfg.Redis.Addr)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		redisCache, err := cache.NewRedisCache(redisClient, cfg.Redis.Prefix)
		if err != nil {
			closeAll()
			return nil, nil, errors.Wrap(err, "failed creating redis cache")
		}
		l2 = redisCache
	}

	ml, err := cache.NewMultiLevelCache(l1, l2, cache.JSONCodec{}, cache.Config{
		Mode:         mode,
		WarmupTTL:    cfg.Cache.WarmTTL,
		L1DefaultTTL: cfg.Cache.L1TTL,
		L2DefaultTTL: cfg.Cache.L2TTL,
		Logger:       logger.Named("cache"),
	})
	if err != nil {
		closeAll()
		return nil, nil, errors.Wrap(err, "failed constructing cache")
	}
	return ml, closeAll, nil
}
