package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ollama-chat/internal/config"
	"ollama-chat/internal/history"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisHistoryCache struct {
	client *redis.Client
	prefix string
}

func NewRedisHistoryCache(cfg config.RedisConfig, prefix string) (*RedisHistoryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisHistoryCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *RedisHistoryCache) BuildKey(view string, limit int) string {
	return fmt.Sprintf("%s:%s:%d", c.prefix, view, limit)
}

func (c *RedisHistoryCache) Get(ctx context.Context, key string) ([]history.Entry, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var entries []history.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return entries, nil
}

func (c *RedisHistoryCache) Set(ctx context.Context, key string, entries []history.Entry, ttl time.Duration) error {
	if entries == nil {
		entries = []history.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisHistoryCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+":*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan redis keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (c *RedisHistoryCache) Close() error {
	return c.client.Close()
}
