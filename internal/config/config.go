// 文件路径: internal/config/config.go
// 模块说明: 移动端门面的全部配置结构，由 viper 从 config.yaml / 环境变量 / .env 装载。
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/creamcroissant/xboard-mobile/internal/panel"
)

// Config 汇总应用的全部配置。
type Config struct {
	HTTP        HTTPConfig      `mapstructure:"http"`
	Log         LogConfig       `mapstructure:"log"`
	DB          DBConfig        `mapstructure:"database"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Panel       PanelConfig     `mapstructure:"panel"`
	Fetch       FetchConfig     `mapstructure:"fetch"`
	Passthrough FetchConfig     `mapstructure:"passthrough"`
	Mobile      MobileConfig    `mapstructure:"mobile"`
	Servers     ServersConfig   `mapstructure:"servers"`
	Pricing     PricingConfig   `mapstructure:"pricing"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Jobs        JobsConfig      `mapstructure:"jobs"`
	Dev         DevConfig       `mapstructure:"dev"`
}

// HTTPConfig 定义 HTTP 服务配置。
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// LogConfig 定义日志配置。
type LogConfig struct {
	Level     string        `mapstructure:"level"`
	Format    string        `mapstructure:"format"`
	AddSource bool          `mapstructure:"add_source"`
	File      LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables a rotating log file next to stdout.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// SlogLevel 将字符串级别转换为 slog.Level，未知值回退到 info。
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DBConfig 定义数据库配置。
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig 定义 Bearer 令牌校验配置，需与签发方（机器人 cabinet）一致。
type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	Leeway     time.Duration `mapstructure:"leeway"`
}

// PanelConfig 定义面板 API 访问配置。
type PanelConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
	// LookupTimeout bounds remote lookups on request paths.
	LookupTimeout time.Duration     `mapstructure:"lookup_timeout"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	RateLimit     float64           `mapstructure:"rate_limit"`
	Burst         int               `mapstructure:"burst"`
	Retry         panel.RetryConfig `mapstructure:"retry"`
}

// FetchConfig 定义抓取订阅内容的时间预算。
type FetchConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// MobileConfig 定义移动端对外暴露的信息。
type MobileConfig struct {
	PublicBaseURL   string `mapstructure:"public_base_url"`
	DefaultLanguage string `mapstructure:"default_language"`
}

// ServersConfig 定义服务器目录的构建方式。
type ServersConfig struct {
	ExpandedFallback string `mapstructure:"expanded_fallback"`
	FanoutLimit      int    `mapstructure:"fanout_limit"`
	CategoriesFile   string `mapstructure:"categories_file"`
}

// PricingConfig 定义价格展示。
type PricingConfig struct {
	Locale           string `mapstructure:"locale"`
	CurrencySymbol   string `mapstructure:"currency_symbol"`
	AvailablePeriods []int  `mapstructure:"available_periods"`
}

// CacheConfig 选择限流计数所用的缓存后端。
type CacheConfig struct {
	Driver string      `mapstructure:"driver"`
	Prefix string      `mapstructure:"prefix"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 定义 Redis 连接。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig 定义按客户端 IP 的限流。
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

// MetricsConfig 定义 Prometheus 指标配置。
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Token     string    `mapstructure:"token"`
	Buckets   []float64 `mapstructure:"buckets"`
}

// JobsConfig 定义后台任务的 cron 表达式，空值表示禁用。
type JobsConfig struct {
	PanelProbe string `mapstructure:"panel_probe"`
}

// DevConfig 定义开发模式。开启后任何人都能拿到固定用户的令牌。
type DevConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TelegramID int64         `mapstructure:"telegram_id"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}
