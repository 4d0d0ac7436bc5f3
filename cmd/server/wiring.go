package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cinemarket/market-engine/internal/catalog"
	"github.com/cinemarket/market-engine/internal/config"
	"github.com/cinemarket/market-engine/internal/store"
)

// openKV builds the persistence backend named in cfg. The returned cleanup
// closes every client that was opened.
func openKV(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (store.KV, func(), error) {
	var cleanup []func()
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, closeAll, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
	}

	var kv store.KV
	switch cfg.Backend {
	case "redis":
		kv = store.NewRedisKV(rdb, "cinemarket:")
		log.Info("using redis storage")

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("database connection failed: %w", err)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresKV(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("creating schema: %w", err)
		}
		kv = pg
		log.Info("using postgres storage")

	case "s3":
		kv = store.NewS3KV(store.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		log.Info("using s3 storage", zap.String("bucket", cfg.S3.Bucket))

	default:
		log.Warn("using in-memory storage (portfolios will not survive a restart)")
		return store.NewMemoryKV(), closeAll, nil
	}

	// Read-through cache in front of the slower durable backends.
	if rdb != nil && cfg.Backend != "redis" && cfg.Redis.CacheTTL > 0 {
		kv = store.NewCachedKV(kv, rdb, cfg.Redis.CacheTTL, log)
		log.Info("redis cache enabled", zap.Duration("ttl", cfg.Redis.CacheTTL))
	}

	return kv, closeAll, nil
}

// openCatalog returns the TMDB client when an API key is configured and
// the built-in sample catalog otherwise.
func openCatalog(cfg config.TMDBConfig, log *zap.Logger) catalog.Catalog {
	if cfg.APIKey == "" {
		log.Warn("no TMDB api key configured, using sample catalog",
			zap.Int("movies", len(catalog.SampleMovies)))
		return catalog.NewSampleCatalog()
	}
	return catalog.NewTMDBClient(catalog.TMDBConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
}

func seedFor(cfg config.MarketConfig) int64 {
	if cfg.Seed != 0 {
		return cfg.Seed
	}
	return time.Now().UnixNano()
}
