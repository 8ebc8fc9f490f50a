package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Yo-Self/yo-self.github.io-sub001/config"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/database"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/logger"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/cache"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/compose"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/fetcher"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/query"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/service"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadConfig()

	zl, err := logger.InitLogger(logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Log.Environment,
		ServiceName: "menu-gateway",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := newQuerier(cfg.Source)
	if err != nil {
		zl.Fatal("Failed to set up menu source", zap.String("source", cfg.Source.Kind), zap.Error(err))
	}

	redisClient := connectRedis(ctx, cfg, zl)
	if redisClient != nil {
		defer redisClient.Close()
	}

	menuCache := newCache(ctx, cfg, redisClient, zl)
	f := fetcher.New(source, menuCache,
		fetcher.WithChunkSize(cfg.Source.ChunkSize),
		fetcher.WithLogger(zl.Named("fetcher")))
	composer := compose.NewComposer(
		compose.WithLocale(cfg.Labels.Locale),
		compose.WithLabels(compose.Labels{NoCategory: cfg.Labels.NoCategory, Featured: cfg.Labels.Featured}),
	)
	svc := service.New(f, composer, zl.Named("menu"))

	router, err := setupRouter(cfg, svc, redisClient, zl)
	if err != nil {
		zl.Fatal("Failed to set up router", zap.Error(err))
	}

	health, grpcServer, err := startGRPC(cfg.Server.GRPCPort, zl)
	if err != nil {
		zl.Fatal("Failed to start gRPC health server", zap.Error(err))
	}
	go probeSource(ctx, svc, health, zl)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.HTTPPort,
		Handler: router,
	}
	go func() {
		zl.Info("Menu gateway listening", zap.String("addr", srv.Addr), zap.String("source", cfg.Source.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down")

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
}

func newQuerier(cfg config.SourceConfig) (query.Querier, error) {
	switch cfg.Kind {
	case config.SourceREST:
		return query.NewRestClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.HTTPTimeout), nil
	case config.SourcePostgres:
		db, err := database.NewConnection(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return query.NewDBQuerier(db), nil
	case config.SourceFile:
		return query.LoadMemoryQuerier(cfg.FixturePath)
	default:
		return nil, fmt.Errorf("unknown menu source %q", cfg.Kind)
	}
}

// connectRedis returns nil when redis is disabled or unreachable; the cache
// then runs memory-only.
func connectRedis(ctx context.Context, cfg config.Config, zl *zap.Logger) *redis.Client {
	if !cfg.Cache.RedisEnabled {
		return nil
	}
	client, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		zl.Warn("Redis unavailable, continuing with memory cache only", zap.Error(err))
		return nil
	}
	return client
}

func newCache(ctx context.Context, cfg config.Config, redisClient *redis.Client, zl *zap.Logger) *cache.Cache {
	opts := []cache.Option{
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLogger(zl.Named("cache")),
	}
	if redisClient == nil {
		return cache.New(opts...)
	}

	store := cache.NewRedisStore(redisClient)
	c := cache.New(append(opts, cache.WithStore(store), cache.WithNotifier(store))...)
	go func() {
		if err := store.Listen(ctx, c, zl.Named("cache")); err != nil && !errors.Is(err, context.Canceled) {
			zl.Warn("Cache invalidation listener stopped", zap.Error(err))
		}
	}()
	return c
}
