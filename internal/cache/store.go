// 文件路径: internal/cache/store.go
// 模块说明: 限流计数使用的缓存接口。单实例用 go-cache，多副本部署时切换到 Redis 共享计数。
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store 定义限流等流程共用的缓存接口。
type Store interface {
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, bool)
	Delete(ctx context.Context, key string)
	TTL(ctx context.Context, key string) (time.Duration, bool)
	Namespace(prefix string) Store

	// Increment adds delta to the stored integer, returning the updated value.
	// ttl applies when the key is created.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// Options 配置内存缓存行为。
type Options struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	Prefix          string
}

// NewStore 创建基于 go-cache 的缓存实现，并支持命名空间。
func NewStore(opts Options) Store {
	defaultTTL := opts.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	cleanup := opts.CleanupInterval
	if cleanup <= 0 {
		cleanup = defaultTTL
	}
	return &goCacheStore{
		backend:    gocache.New(defaultTTL, cleanup),
		defaultTTL: defaultTTL,
		prefix:     normalizePrefix(opts.Prefix),
	}
}

type goCacheStore struct {
	backend    *gocache.Cache
	defaultTTL time.Duration
	prefix     string
}

func (s *goCacheStore) SetString(_ context.Context, key, value string, ttl time.Duration) error {
	s.backend.Set(prefixed(s.prefix, key), value, s.normalizeTTL(ttl))
	return nil
}

func (s *goCacheStore) GetString(_ context.Context, key string) (string, bool) {
	raw, ok := s.backend.Get(prefixed(s.prefix, key))
	if !ok {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case int64:
		return fmt.Sprint(v), true
	}
	return "", false
}

func (s *goCacheStore) Delete(_ context.Context, key string) {
	s.backend.Delete(prefixed(s.prefix, key))
}

func (s *goCacheStore) TTL(_ context.Context, key string) (time.Duration, bool) {
	_, exp, ok := s.backend.GetWithExpiration(prefixed(s.prefix, key))
	if !ok || exp.IsZero() {
		return 0, false
	}
	ttl := time.Until(exp)
	if ttl < 0 {
		return 0, false
	}
	return ttl, true
}

func (s *goCacheStore) Namespace(prefix string) Store {
	return &goCacheStore{
		backend:    s.backend,
		defaultTTL: s.defaultTTL,
		prefix:     joinPrefixes(s.prefix, prefix),
	}
}

// Increment 只在 key 首次创建时设置过期时间，之后保留原有过期时间（固定窗口）。
func (s *goCacheStore) Increment(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if strings.TrimSpace(key) == "" {
		return 0, nil
	}
	full := prefixed(s.prefix, key)
	if s.backend.Add(full, delta, s.normalizeTTL(ttl)) == nil {
		return delta, nil
	}
	current, err := s.backend.IncrementInt64(full, delta)
	if err != nil {
		return 0, fmt.Errorf("cache increment failed: %w", err)
	}
	return current, nil
}

func (s *goCacheStore) normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}

func prefixed(prefix, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return prefix
	}
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}

func normalizePrefix(prefix string) string {
	return strings.Trim(prefix, ": ")
}

func joinPrefixes(parts ...string) string {
	var normalized []string
	for _, part := range parts {
		if trimmed := normalizePrefix(part); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return strings.Join(normalized, ":")
}
