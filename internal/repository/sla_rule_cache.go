package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/sav-service/internal/domain"
)

// cachedRule is the Redis representation; Missing records a known absence.
type cachedRule struct {
	Missing bool            `json:"missing,omitempty"`
	Rule    *domain.SLARule `json:"rule,omitempty"`
}

type cachedSLARuleRepository struct {
	inner  SLARuleRepository
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSLARuleRepository wraps inner with a Redis read-through cache.
// Cache failures are logged and fall through to inner; a nil client or a
// non-positive ttl disables caching.
func NewCachedSLARuleRepository(inner SLARuleRepository, client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) SLARuleRepository {
	if client == nil || ttl <= 0 {
		return inner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedSLARuleRepository{inner: inner, client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (r *cachedSLARuleRepository) GetByClient(ctx context.Context, clientID string) (*domain.SLARule, error) {
	return r.get(ctx, r.clientKey(clientID), func() (*domain.SLARule, error) {
		return r.inner.GetByClient(ctx, clientID)
	})
}

func (r *cachedSLARuleRepository) GetGlobal(ctx context.Context) (*domain.SLARule, error) {
	return r.get(ctx, r.globalKey(), func() (*domain.SLARule, error) {
		return r.inner.GetGlobal(ctx)
	})
}

func (r *cachedSLARuleRepository) Upsert(ctx context.Context, rule *domain.SLARule) error {
	if err := r.inner.Upsert(ctx, rule); err != nil {
		return err
	}
	key := r.globalKey()
	if rule.ClientID != nil {
		key = r.clientKey(*rule.ClientID)
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("sla rule cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (r *cachedSLARuleRepository) get(ctx context.Context, key string, load func() (*domain.SLARule, error)) (*domain.SLARule, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entry cachedRule
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
			if entry.Missing {
				return nil, pgx.ErrNoRows
			}
			if entry.Rule != nil {
				return entry.Rule, nil
			}
		}
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("sla rule cache read failed", zap.String("key", key), zap.Error(err))
	}

	rule, err := load()
	var entry cachedRule
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		entry.Missing = true
	case err != nil:
		return nil, err
	default:
		entry.Rule = rule
	}

	payload, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		r.logger.Warn("sla rule cache encode failed", zap.String("key", key), zap.Error(marshalErr))
		return rule, err
	}
	if setErr := r.client.Set(ctx, key, payload, r.ttl).Err(); setErr != nil {
		r.logger.Warn("sla rule cache write failed", zap.String("key", key), zap.Error(setErr))
	}
	return rule, err
}

// Global and client rules live in separate namespaces so no client id can
// alias the global entry.
func (r *cachedSLARuleRepository) globalKey() string {
	return r.prefix + "sla_rule:global"
}

func (r *cachedSLARuleRepository) clientKey(clientID string) string {
	return r.prefix + "sla_rule:client:" + clientID
}
