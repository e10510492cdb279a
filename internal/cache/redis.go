// 文件路径: internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis-backed store.
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
}

// NewRedisClient 创建 Redis 客户端并验证连接。
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("redis addr is required / 需要 redis 地址")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.Cmdable, opts RedisOptions) Store {
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisStore{client: client, defaultTTL: ttl, prefix: normalizePrefix(opts.Prefix)}
}

type redisStore struct {
	client     redis.Cmdable
	defaultTTL time.Duration
	prefix     string
}

func (s *redisStore) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, prefixed(s.prefix, key), value, s.normalizeTTL(ttl)).Err()
}

func (s *redisStore) GetString(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, prefixed(s.prefix, key)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *redisStore) Delete(ctx context.Context, key string) {
	s.client.Del(ctx, prefixed(s.prefix, key))
}

// TTL 对不存在或没有过期时间的 key 返回 false（PTTL 返回 -2 / -1）。
func (s *redisStore) TTL(ctx context.Context, key string) (time.Duration, bool) {
	ttl, err := s.client.PTTL(ctx, prefixed(s.prefix, key)).Result()
	if err != nil || ttl <= 0 {
		return 0, false
	}
	return ttl, true
}

func (s *redisStore) Namespace(prefix string) Store {
	return &redisStore{client: s.client, defaultTTL: s.defaultTTL, prefix: joinPrefixes(s.prefix, prefix)}
}

func (s *redisStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if strings.TrimSpace(key) == "" {
		return 0, nil
	}
	full := prefixed(s.prefix, key)
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.IncrBy(ctx, full, delta)
		pipe.ExpireNX(ctx, full, s.normalizeTTL(ttl))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis increment failed: %w", err)
	}
	return incr.Val(), nil
}

func (s *redisStore) normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}
