package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/senirlioglu/envanter-risk-analizi/internal/config"
)

const (
	defaultCacheTTL = 5 * time.Minute
	scanBatchSize   = 100
)

// NewRedisClient connects and pings redis.
func NewRedisClient(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func reportTTL(cfg config.CacheConfig) time.Duration {
	ttl := time.Duration(cfg.ReportTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return ttl
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func deleteKeysWithPrefix(ctx context.Context, client *redis.Client, prefix string, batchSize int64) error {
	var cursor uint64
	pattern := prefix + "*"
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, pattern, batchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}

		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}

// Backends is the report cache and run lock pair. Both share one redis
// client when caching is enabled and fall back to in-process versions
// otherwise.
type Backends struct {
	Reports ReportCache
	Locker  RunLocker
	client  *redis.Client
}

func NewBackends(cfg config.CacheConfig) (*Backends, error) {
	if !cfg.Enabled {
		return &Backends{Reports: NewNoopReportCache(), Locker: NewLocalRunLocker()}, nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	lockTTL := time.Duration(cfg.LockTTLSeconds) * time.Second
	return &Backends{
		Reports: NewRedisReportCache(client, reportTTL(cfg)),
		Locker:  NewRedisRunLocker(client, lockTTL),
		client:  client,
	}, nil
}

func (b *Backends) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}
