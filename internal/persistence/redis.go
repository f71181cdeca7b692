package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/sav-service/internal/config"
)

// ErrRedisDisabled is returned when REDIS_ADDR is empty.
var ErrRedisDisabled = errors.New("redis client not configured")

// Redis carries the client shared by the sla rule cache and the sweeper
// level store, and the key namespace they write under.
type Redis struct {
	Client    *redis.Client
	KeyPrefix string
}

// NewRedis builds the client. An empty address disables Redis: Client is
// nil, rule caching is skipped and the sweeper cannot run. An unreachable
// server is only logged, since go-redis reconnects on demand.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; sla rule cache and sweeper disabled")
		return &Redis{KeyPrefix: cfg.KeyPrefix}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client, KeyPrefix: cfg.KeyPrefix}
}

// Enabled reports whether a client was configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Key joins parts under the configured prefix, e.g. "sav:sla_level:<id>".
func (r *Redis) Key(parts ...string) string {
	return r.KeyPrefix + strings.Join(parts, ":")
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return ErrRedisDisabled
	}
	return r.Client.Ping(ctx).Err()
}
