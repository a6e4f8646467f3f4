package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the LaundryPro backend.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	WhatsApp      WhatsAppConfig      `mapstructure:"whatsapp"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Queue         QueueConfig         `mapstructure:"queue"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// WhatsAppConfig holds WhatsApp Business API credentials and defaults.
type WhatsAppConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	APIURL             string        `mapstructure:"api_url"`
	AccessToken        string        `mapstructure:"access_token"`
	PhoneNumberID      string        `mapstructure:"phone_number_id"`
	BusinessAccountID  string        `mapstructure:"business_account_id"`
	WebhookVerifyToken string        `mapstructure:"webhook_verify_token"`
	AppSecret          string        `mapstructure:"app_secret"`
	DefaultCountryCode string        `mapstructure:"default_country_code"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// NotificationConfig tunes the dispatch pipeline.
type NotificationConfig struct {
	MaxRetries           int           `mapstructure:"max_retries"`
	BulkDelay            time.Duration `mapstructure:"bulk_delay"`
	RetentionDays        int           `mapstructure:"retention_days"`
	WebhookRetentionDays int           `mapstructure:"webhook_retention_days"`
	DispatchSchedule     string        `mapstructure:"dispatch_schedule"`
	RetrySchedule        string        `mapstructure:"retry_schedule"`
	CleanupSchedule      string        `mapstructure:"cleanup_schedule"`
}

// QueueConfig tunes the in-process task queue.
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	Buffer  int `mapstructure:"buffer"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("LAUNDRYPRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/laundrypro.sqlite")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("whatsapp.enabled", false)
	v.SetDefault("whatsapp.api_url", "https://graph.facebook.com/v18.0")
	v.SetDefault("whatsapp.default_country_code", "91")
	v.SetDefault("whatsapp.timeout", "30s")

	v.SetDefault("notifications.max_retries", 3)
	v.SetDefault("notifications.bulk_delay", "100ms")
	v.SetDefault("notifications.retention_days", 90)
	v.SetDefault("notifications.webhook_retention_days", 30)
	v.SetDefault("notifications.dispatch_schedule", "@every 1m")
	v.SetDefault("notifications.retry_schedule", "@every 10m")
	v.SetDefault("notifications.cleanup_schedule", "@daily")

	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.buffer", 256)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
