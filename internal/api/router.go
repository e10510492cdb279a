// 文件路径: internal/api/router.go
// 模块说明: chi 路由装配：运维探针、Prometheus 指标，以及 /mobile/v1 下的移动端接口。
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creamcroissant/xboard-mobile/internal/api/handler"
	"github.com/creamcroissant/xboard-mobile/internal/api/middleware"
	"github.com/creamcroissant/xboard-mobile/internal/config"
	"github.com/creamcroissant/xboard-mobile/internal/security"
	"github.com/creamcroissant/xboard-mobile/internal/service"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

// MobilePrefix is the mount point of the mobile API.
const MobilePrefix = "/mobile/v1"

var opsPaths = []string{"/health", "/healthz", "/_internal/ready", "/metrics"}

type Services struct {
	Auth      service.AuthService
	Resolver  service.SubscriptionResolver
	VPNConfig service.VPNConfigService
	Catalog   service.CatalogService
	Tariffs   service.TariffService
	DevAuth   service.DevAuthService
	I18n      *i18n.Manager
}

// RouterOption customizes optional router behaviour.
type RouterOption func(*routerOptions)

type routerOptions struct {
	http        config.HTTPConfig
	rateLimit   config.RateLimitConfig
	rateLimiter *security.RateLimiter
	ready       func(ctx context.Context) error
}

// WithHTTPConfig applies body limit, CORS origins and slow-request threshold.
func WithHTTPConfig(cfg config.HTTPConfig) RouterOption {
	return func(o *routerOptions) { o.http = cfg }
}

// WithRateLimit enables per-IP rate limiting backed by limiter.
func WithRateLimit(cfg config.RateLimitConfig, limiter *security.RateLimiter) RouterOption {
	return func(o *routerOptions) {
		o.rateLimit = cfg
		o.rateLimiter = limiter
	}
}

// WithReadiness sets the check behind /_internal/ready, usually a DB ping.
func WithReadiness(check func(ctx context.Context) error) RouterOption {
	return func(o *routerOptions) { o.ready = check }
}

// NewRouter wires ops endpoints and the mobile API.
func NewRouter(logger *slog.Logger, services Services, metricsCfg config.MetricsConfig, opts ...RouterOption) http.Handler {
	var options routerOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if services.Auth == nil {
		panic("router requires AuthService")
	}
	if services.Resolver == nil {
		panic("router requires SubscriptionResolver")
	}
	if services.VPNConfig == nil {
		panic("router requires VPNConfigService")
	}
	if services.Catalog == nil {
		panic("router requires CatalogService")
	}
	if services.Tariffs == nil {
		panic("router requires TariffService")
	}
	if services.I18n == nil {
		panic("router requires I18n Manager")
	}

	r := chi.NewRouter()

	// Initialize Prometheus metrics
	mCfg := middleware.DefaultMetricsConfig()
	if metricsCfg.Namespace != "" {
		mCfg.Namespace = metricsCfg.Namespace
	}
	if metricsCfg.Subsystem != "" {
		mCfg.Subsystem = metricsCfg.Subsystem
	}
	if len(metricsCfg.Buckets) > 0 {
		mCfg.Buckets = metricsCfg.Buckets
	}

	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)

	if metricsCfg.Enabled {
		r.Use(middleware.NewMetrics(mCfg).Middleware(mCfg))
	}

	cors := middleware.DefaultCORSConfig()
	if len(options.http.CORSOrigins) > 0 {
		cors.AllowedOrigins = options.http.CORSOrigins
	}
	middlewares := []func(http.Handler) http.Handler{
		middleware.I18n(services.I18n),
		middleware.CORS(cors),
		middleware.BodyLimit(middleware.BodyLimitConfig{
			MaxBytes: options.http.MaxBodyBytes,
			I18n:     services.I18n,
		}),
	}

	if options.rateLimit.Enabled && options.rateLimiter != nil {
		middlewares = append(middlewares, middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:   options.rateLimiter,
			Limit:     options.rateLimit.Limit,
			Window:    options.rateLimit.Window,
			SkipPaths: opsPaths,
			I18n:      services.I18n,
			Logger:    logger,
		}))
	}

	middlewares = append(middlewares,
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: options.http.SlowThreshold,
			SkipPaths:     opsPaths,
		}),
		chiMiddleware.Recoverer,
		chiMiddleware.Compress(5),
	)

	r.Use(middlewares...)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Alias for Docker health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	r.Get("/_internal/ready", func(w http.ResponseWriter, req *http.Request) {
		if options.ready != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := options.ready(ctx); err != nil {
				logger.Warn("readiness check failed", "error", err)
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	// Prometheus metrics endpoint
	if metricsCfg.Enabled {
		if metricsCfg.Token != "" {
			r.With(middleware.MetricsGuard(metricsCfg.Token)).Handle("/metrics", promhttp.Handler())
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	// 先设置 NotFound，挂载的子路由会继承。
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Debug("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		handler.RespondErrorI18nAction(req.Context(), w, http.StatusNotFound, "", "error.not_found", services.I18n)
	})

	registerMobileRoutes(r, services, logger)

	return r
}

func registerMobileRoutes(root chi.Router, services Services, logger *slog.Logger) {
	profileHandler := handler.NewProfileHandler(services.Resolver, services.I18n, logger)
	vpnConfigHandler := handler.NewVPNConfigHandler(services.VPNConfig, services.I18n, logger)
	serversHandler := handler.NewServersHandler(services.Catalog, services.I18n, logger)
	tariffsHandler := handler.NewTariffsHandler(services.Tariffs, services.I18n, logger)
	devAuthHandler := handler.NewDevAuthHandler(services.DevAuth, services.I18n, logger)

	root.Route(MobilePrefix, func(mobile chi.Router) {
		mobile.Group(func(authed chi.Router) {
			authed.Use(middleware.UserGuard(services.Auth, services.I18n))
			authed.Get("/profile", profileHandler.Profile)
			authed.Get("/profile/subscription", profileHandler.Subscription)
			authed.Get("/vpn-config", vpnConfigHandler.Get)
		})
		mobile.Group(func(public chi.Router) {
			public.Use(middleware.OptionalUser(services.Auth))
			public.Get("/servers", serversHandler.List)
			public.Get("/tariffs", tariffsHandler.List)
		})
		// 开发模式关闭时 handler 返回 404。
		mobile.Post("/dev/auth", devAuthHandler.Issue)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
