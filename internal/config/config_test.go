package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFatal turns fatal exits into panics for the duration of the test.
func stubFatal(t *testing.T) {
	t.Helper()
	prev := fatal
	fatal = func(msg string, _ ...any) { panic(msg) }
	t.Cleanup(func() { fatal = prev })
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "auth")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "accounts")
	t.Setenv("JWT_SECRET", "access-secret")
}

func TestLoadDefaults(t *testing.T) {
	stubFatal(t)
	setRequired(t)

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "access-secret", cfg.JWTRefreshSecret)
	assert.Equal(t, TokenStoreMySQL, cfg.TokenStore)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.EventsEnabled)
	assert.False(t, cfg.Production())
}

func TestLoadOverrides(t *testing.T) {
	stubFatal(t)
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "5")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("TOKEN_STORE", "Redis")
	t.Setenv("EVENTS_ENABLED", "yes")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")

	cfg := Load()

	assert.True(t, cfg.Production())
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "refresh-secret", cfg.JWTRefreshSecret)
	assert.Equal(t, TokenStoreRedis, cfg.TokenStore)
	assert.True(t, cfg.EventsEnabled)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.AMQPURL)
}

func TestLoadMissingRequired(t *testing.T) {
	stubFatal(t)
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	require.PanicsWithValue(t, "missing required env var", func() { Load() })
}

func TestLoadRejectsUnknownTokenStore(t *testing.T) {
	stubFatal(t)
	setRequired(t)
	t.Setenv("TOKEN_STORE", "memcached")

	assert.Panics(t, func() { Load() })
}

func TestRedisConfig(t *testing.T) {
	stubFatal(t)
	setRequired(t)
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TLS", "true")

	rc := Load().Redis
	assert.Equal(t, "cache:6380", rc.Addr)
	assert.Equal(t, "auth", rc.KeyPrefix)

	opts := rc.Options()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	require.NotNil(t, opts.TLSConfig)
}

func TestRedisConfigAddrFallback(t *testing.T) {
	stubFatal(t)
	setRequired(t)
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	rc := Load().Redis
	assert.Equal(t, "redis.internal:6379", rc.Addr)
	assert.Nil(t, rc.Options().TLSConfig)
}
