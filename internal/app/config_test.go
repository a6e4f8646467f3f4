package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 3*time.Second, cfg.Cache.Redis.Timeout)

	require.True(t, cfg.WhatsApp.Enabled)
	require.Equal(t, "https://graph.facebook.com/v19.0", cfg.WhatsApp.APIURL)
	require.Equal(t, "test-token", cfg.WhatsApp.AccessToken)
	require.Equal(t, "44", cfg.WhatsApp.DefaultCountryCode)
	require.Equal(t, 10*time.Second, cfg.WhatsApp.Timeout)

	require.Equal(t, 5, cfg.Notifications.MaxRetries)
	require.Equal(t, 250*time.Millisecond, cfg.Notifications.BulkDelay)
	require.Equal(t, 60, cfg.Notifications.RetentionDays)
	require.Equal(t, 14, cfg.Notifications.WebhookRetentionDays)
	require.Equal(t, "@every 30s", cfg.Notifications.DispatchSchedule)
	// Unset keys keep their defaults.
	require.Equal(t, "@every 10m", cfg.Notifications.RetrySchedule)
	require.Equal(t, "@daily", cfg.Notifications.CleanupSchedule)

	require.Equal(t, 4, cfg.Queue.Workers)
	require.Equal(t, 64, cfg.Queue.Buffer)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/laundrypro.sqlite", cfg.Database.Path)
	require.False(t, cfg.WhatsApp.Enabled)
	require.Equal(t, "https://graph.facebook.com/v18.0", cfg.WhatsApp.APIURL)
	require.Equal(t, "91", cfg.WhatsApp.DefaultCountryCode)
	require.Equal(t, 3, cfg.Notifications.MaxRetries)
	require.Equal(t, 100*time.Millisecond, cfg.Notifications.BulkDelay)
	require.Equal(t, 90, cfg.Notifications.RetentionDays)
	require.Equal(t, 2, cfg.Queue.Workers)
	require.Equal(t, 256, cfg.Queue.Buffer)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LAUNDRYPRO_SERVER_PORT", "9999")
	t.Setenv("LAUNDRYPRO_WHATSAPP_ACCESS_TOKEN", "env-token")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, "env-token", cfg.WhatsApp.AccessToken)
}

func TestConfigAdapters(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{
			Driver: "Postgres",
			Postgres: DBAuthConfig{
				Host:     "db.internal",
				Port:     5432,
				Database: "laundry",
				Username: "app",
				Password: "pw",
			},
		},
		Cache: CacheConfig{
			Redis: RedisCacheConfig{
				Address: " redis.internal:6379 ",
				DB:      1,
				Timeout: 2 * time.Second,
			},
		},
		WhatsApp: WhatsAppConfig{
			Enabled:            true,
			APIURL:             " https://graph.facebook.com/v18.0 ",
			PhoneNumberID:      "555",
			DefaultCountryCode: "91",
		},
	}

	db := cfg.Database.DatabaseConnectionConfig()
	require.Equal(t, "postgres", db.Driver)
	require.Equal(t, "db.internal", db.Host)
	require.Equal(t, "laundry", db.Name)
	require.Equal(t, "app", db.User)

	redis := cfg.Cache.RedisClientConfig()
	require.Equal(t, "redis.internal:6379", redis.Address)
	require.Equal(t, 1, redis.DB)
	require.Equal(t, 2*time.Second, redis.Timeout)

	channel := cfg.WhatsApp.ChannelClientConfig()
	require.True(t, channel.Enabled)
	require.Equal(t, "https://graph.facebook.com/v18.0", channel.APIURL)
	require.Equal(t, "555", channel.PhoneNumberID)
	require.Equal(t, "91", channel.DefaultCountryCode)
}
