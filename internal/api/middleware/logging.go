// 文件路径: internal/api/middleware/logging.go
// 模块说明: 增强日志中间件，支持请求追踪 ID 和慢请求日志
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// LoggingConfig 日志中间件配置
type LoggingConfig struct {
	Logger        *slog.Logger
	SlowThreshold time.Duration // 慢请求阈值，超过此时间会记录为 WARN
	SkipPaths     []string      // 跳过日志的路径（如健康检查）
}

// StructuredLogger 结构化日志中间件
func StructuredLogger(config LoggingConfig) func(http.Handler) http.Handler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.SlowThreshold == 0 {
		config.SlowThreshold = 2 * time.Second
	}

	skipPathMap := make(map[string]bool)
	for _, p := range config.SkipPaths {
		skipPathMap[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 跳过特定路径
			if skipPathMap[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			// 获取或生成请求 ID
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID == "" {
				requestID = "unknown"
			}

			// 包装 ResponseWriter 以捕获状态码
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// 在响应头中设置请求 ID
			ww.Header().Set("X-Request-ID", requestID)

			// 处理请求
			next.ServeHTTP(ww, r)

			// 计算耗时
			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = 200
			}

			// 构建日志字段
			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", duration),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("bytes", ww.BytesWritten()),
			}

			// 添加用户代理（如果有）
			if ua := r.Header.Get("User-Agent"); ua != "" {
				attrs = append(attrs, slog.String("user_agent", ua))
			}

			// 不记录查询串，只记录匹配到的路由模板。
			if route := chiRoutePattern(r); route != "" {
				attrs = append(attrs, slog.String("route", route))
			}

			// 根据状态和耗时选择日志级别
			level := slog.LevelInfo
			msg := "request completed"

			if status >= 500 {
				level = slog.LevelError
				msg = "request failed"
			} else if status >= 400 {
				level = slog.LevelWarn
				msg = "request error"
			} else if duration > config.SlowThreshold {
				level = slog.LevelWarn
				msg = "slow request"
				attrs = append(attrs, slog.Duration("slow_threshold", config.SlowThreshold))
			}

			// 记录日志
			config.Logger.LogAttrs(r.Context(), level, msg, attrs...)
		})
	}
}

func chiRoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
