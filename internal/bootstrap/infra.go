// 文件路径: internal/bootstrap/infra.go
// 模块说明: 组装共享基础设施：缓存（内存或 Redis）、JWT 管理器、限流器。
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/creamcroissant/xboard-mobile/internal/auth/token"
	"github.com/creamcroissant/xboard-mobile/internal/cache"
	"github.com/creamcroissant/xboard-mobile/internal/config"
	"github.com/creamcroissant/xboard-mobile/internal/security"
)

// Infrastructure bundles shared helpers required by services and middleware.
type Infrastructure struct {
	Cache       cache.Store
	Token       *token.Manager
	RateLimiter *security.RateLimiter

	closer io.Closer
}

// Close releases the redis connection pool when one was opened.
func (i *Infrastructure) Close() error {
	if i == nil || i.closer == nil {
		return nil
	}
	return i.closer.Close()
}

// BuildInfrastructure wires cache/token/rate-limit helpers from configuration.
func BuildInfrastructure(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required / 配置不能为空")
	}
	if logger == nil {
		logger = slog.Default()
	}

	infra := &Infrastructure{}
	switch cfg.Cache.Driver {
	case "redis":
		opts := cache.RedisOptions{
			Addr:       cfg.Cache.Redis.Addr,
			Password:   cfg.Cache.Redis.Password,
			DB:         cfg.Cache.Redis.DB,
			Prefix:     cfg.Cache.Prefix,
			DefaultTTL: 5 * time.Minute,
		}
		client, err := cache.NewRedisClient(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		infra.Cache = cache.NewRedisStore(client, opts)
		infra.closer = client
		logger.Info("cache backend ready", "driver", "redis", "addr", opts.Addr)
	default:
		infra.Cache = cache.NewStore(cache.Options{
			Prefix:          cfg.Cache.Prefix,
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: time.Minute,
		})
		logger.Info("cache backend ready", "driver", "memory")
	}

	tokenManager, err := token.NewManager(token.Options{
		SigningKey: []byte(cfg.Auth.SigningKey),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		TTL:        cfg.Dev.TokenTTL,
		Leeway:     cfg.Auth.Leeway,
	})
	if err != nil {
		_ = infra.Close()
		return nil, fmt.Errorf("token manager: %w", err)
	}
	infra.Token = tokenManager

	rateLimiter, err := security.NewRateLimiter(infra.Cache)
	if err != nil {
		_ = infra.Close()
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	infra.RateLimiter = rateLimiter
	return infra, nil
}
