package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// legacyEnv 把原机器人 .env 中的扁平变量映射到分层配置。
var legacyEnv = map[string]string{
	"HTTP_ADDR":                      "http.addr",
	"LOG_LEVEL":                      "log.level",
	"LOG_FORMAT":                     "log.format",
	"LOG_FILE":                       "log.file.path",
	"DATABASE_PATH":                  "database.path",
	"CABINET_JWT_SECRET":             "auth.signing_key",
	"REMNAWAVE_API_URL":              "panel.base_url",
	"REMNAWAVE_API_KEY":              "panel.api_key",
	"REMNAWAVE_SECRET_KEY":           "panel.secret_key",
	"MOBILE_PUBLIC_BASE_URL":         "mobile.public_base_url",
	"DEFAULT_LANGUAGE":               "mobile.default_language",
	"AVAILABLE_SUBSCRIPTION_PERIODS": "pricing.available_periods",
	"DEV_MODE":                       "dev.enabled",
	"DEV_USER_TELEGRAM_ID":           "dev.telegram_id",
}

// Load 从默认位置读取配置。
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads an explicit config file when path is set, otherwise config.yaml from
// "." or /etc/xmobile/. Priority: env > config file > .env > defaults.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/xmobile/")
	}

	v.SetEnvPrefix("XMOBILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvAliases(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("http.max_body_bytes", 1<<20)
	v.SetDefault("http.slow_threshold", "2s")
	v.SetDefault("http.cors_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 14)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("database.path", "data/bot.db")

	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.leeway", "30s")

	v.SetDefault("panel.lookup_timeout", "5s")
	v.SetDefault("panel.timeout", "10s")
	v.SetDefault("panel.rate_limit", 20)
	v.SetDefault("panel.burst", 10)
	v.SetDefault("panel.retry.enabled", true)
	v.SetDefault("panel.retry.max_retries", 3)
	v.SetDefault("panel.retry.initial_interval", "500ms")
	v.SetDefault("panel.retry.max_interval", "5s")
	v.SetDefault("panel.retry.multiplier", 2.0)

	v.SetDefault("fetch.connect_timeout", "3s")
	v.SetDefault("fetch.timeout", "6s")
	v.SetDefault("fetch.max_body_bytes", 4<<20)
	v.SetDefault("fetch.user_agent", "v2rayN/6.0")

	v.SetDefault("passthrough.connect_timeout", "2s")
	v.SetDefault("passthrough.timeout", "4s")
	v.SetDefault("passthrough.max_body_bytes", 4<<20)
	v.SetDefault("passthrough.user_agent", "")

	v.SetDefault("mobile.public_base_url", "")
	v.SetDefault("mobile.default_language", "ru")

	v.SetDefault("servers.expanded_fallback", "empty")
	v.SetDefault("servers.fanout_limit", 8)
	v.SetDefault("servers.categories_file", "")

	v.SetDefault("pricing.locale", "ru")
	v.SetDefault("pricing.currency_symbol", "₽")
	v.SetDefault("pricing.available_periods", []int{30, 90, 180, 360})

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.prefix", "xmobile")
	v.SetDefault("cache.redis.addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 120)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "xmobile")
	v.SetDefault("metrics.subsystem", "http")

	v.SetDefault("jobs.panel_probe", "@every 1m")

	v.SetDefault("dev.enabled", false)
	v.SetDefault("dev.telegram_id", 0)
	v.SetDefault("dev.token_ttl", "720h")
}

// bindEnvAliases 让进程环境中的旧变量名同样生效；XMOBILE_ 前缀的名字优先。
func bindEnvAliases(v *viper.Viper) error {
	for oldKey, newKey := range legacyEnv {
		primary := "XMOBILE_" + strings.ToUpper(strings.ReplaceAll(newKey, ".", "_"))
		if err := v.BindEnv(newKey, primary, oldKey); err != nil {
			return fmt.Errorf("bind env %s: %w", newKey, err)
		}
	}
	return nil
}

func loadDotEnv(v *viper.Viper) error {
	candidates := []string{".", ".."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}

		// 独立实例读取 .env，避免与主配置的类型混淆。
		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}
		if err := bindLegacyEnv(v, envViper); err != nil {
			return err
		}
		return nil
	}
	return nil
}

// bindLegacyEnv copies legacy .env values that neither the config file nor the
// process environment already provide.
func bindLegacyEnv(target *viper.Viper, source *viper.Viper) error {
	for oldKey, newKey := range legacyEnv {
		val := strings.TrimSpace(source.GetString(oldKey))
		if val == "" || target.InConfig(newKey) || envSet(oldKey, newKey) {
			continue
		}
		if newKey == "pricing.available_periods" {
			periods, err := ParsePeriods(val)
			if err != nil {
				return fmt.Errorf(".env %s: %w", oldKey, err)
			}
			target.Set(newKey, periods)
			continue
		}
		target.Set(newKey, val)
	}
	return nil
}

func envSet(names ...string) bool {
	for _, name := range names {
		if strings.Contains(name, ".") {
			name = "XMOBILE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
		}
		if _, ok := os.LookupEnv(name); ok {
			return true
		}
	}
	return false
}

// ParsePeriods parses "30,90,180" into day counts.
func ParsePeriods(raw string) ([]int, error) {
	var periods []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		days, err := strconv.Atoi(part)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("invalid period %q", part)
		}
		periods = append(periods, days)
	}
	return periods, nil
}

// Validate 检查启动必需的配置项。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return errors.New("config: auth.signing_key is required / 必须配置 auth.signing_key")
	}
	switch c.Servers.ExpandedFallback {
	case "empty", "direct":
	default:
		return fmt.Errorf("config: servers.expanded_fallback must be empty or direct, got %q", c.Servers.ExpandedFallback)
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: cache.driver must be memory or redis, got %q", c.Cache.Driver)
	}
	if c.Dev.Enabled && c.Dev.TokenTTL <= 0 {
		return errors.New("config: dev.token_ttl must be positive")
	}
	return nil
}
