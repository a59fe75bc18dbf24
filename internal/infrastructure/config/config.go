package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Backend     BackendConfig   `mapstructure:"backend"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Session     SessionConfig   `mapstructure:"session"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// BackendConfig 推薦後端配置（遠端推論服務）
type BackendConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
}

// CacheConfig 食材清單快取配置（Redis）
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// SessionConfig 會話註冊表設定
type SessionConfig struct {
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxSessions     int           `mapstructure:"max_sessions"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("backend.base_url", "BACKEND_BASE_URL")
	viper.BindEnv("backend.api_key", "BACKEND_API_KEY")
	viper.BindEnv("backend.timeout", "BACKEND_TIMEOUT")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.addr", "CACHE_REDIS_ADDR")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("session.idle_ttl", "SESSION_IDLE_TTL")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 添加調試日誌（logger 尚未初始化，改用 fmt.Println）
	fmt.Println("Loading configuration", "backend_base_url:", viper.GetString("backend.base_url"), "backend_api_key:", maskAPIKey(viper.GetString("backend.api_key")))

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "diet-chat")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 推薦後端設定
	viper.SetDefault("backend.base_url", "http://localhost:9000")
	viper.SetDefault("backend.timeout", "60s")
	viper.SetDefault("backend.retry_count", 0)

	// 快取設定
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.addr", "localhost:6379")
	viper.SetDefault("cache.ttl", "1h")

	// 會話設定
	viper.SetDefault("session.idle_ttl", "30m")
	viper.SetDefault("session.cleanup_interval", "5m")
	viper.SetDefault("session.max_sessions", 1000)

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// 去重視窗預設
	viper.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證後端設定
	if config.Backend.BaseURL == "" {
		return fmt.Errorf("backend base url is required")
	}
	if config.Backend.Timeout <= 0 {
		return fmt.Errorf("invalid backend timeout")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.Addr == "" {
			return fmt.Errorf("cache redis addr is required")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	// 驗證會話設定
	if config.Session.IdleTTL <= 0 {
		return fmt.Errorf("invalid session idle ttl")
	}
	if config.Session.CleanupInterval <= 0 {
		return fmt.Errorf("invalid session cleanup interval")
	}
	if config.Session.MaxSessions <= 0 {
		return fmt.Errorf("invalid session max sessions")
	}

	return nil
}
