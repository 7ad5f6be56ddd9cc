package config

// Redis backs the refresh token store when TOKEN_STORE=redis.

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/account-auth/internal/repository"
)

// RedisConfig is the connection and keyspace settings for the Redis token
// store.
type RedisConfig struct {
	Addr      string // host:port; REDIS_HOST+REDIS_PORT win over REDIS_ADDR
	Password  string
	DB        int
	TLS       bool
	KeyPrefix string // namespace for token keys
}

func loadRedis() RedisConfig {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := strings.TrimSpace(envStr("REDIS_HOST", "")), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = net.JoinHostPort(host, port)
	}
	return RedisConfig{
		Addr:      addr,
		Password:  envStr("REDIS_PASSWORD", ""),
		DB:        envInt("REDIS_DB", 0),
		TLS:       envBool("REDIS_TLS", false),
		KeyPrefix: envStr("REDIS_KEY_PREFIX", repository.DefaultKeyPrefix),
	}
}

// Options converts rc into go-redis client options.
func (rc RedisConfig) Options() *redis.Options {
	opts := &redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	}
	if rc.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects and pings the server with a short timeout.
// Unlike a cache, the token store cannot run degraded, so a failed ping
// is returned as an error.
func NewRedisClient(ctx context.Context, rc RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(rc.Options())
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", rc.Addr, err)
	}
	return client, nil
}
