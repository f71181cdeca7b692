package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// levelTTL bounds how long a ticket's last SLA level is remembered. An
// expired entry reads as empty, so a still-late ticket is notified again.
const levelTTL = 30 * 24 * time.Hour

// SLALevelStore remembers the last SLA level notified per ticket.
type SLALevelStore struct {
	redis *Redis
}

// NewSLALevelStore builds a store on top of the shared Redis client.
func NewSLALevelStore(r *Redis) *SLALevelStore {
	return &SLALevelStore{redis: r}
}

// Get returns the last recorded level, or "" when none was recorded.
func (s *SLALevelStore) Get(ctx context.Context, ticketID string) (string, error) {
	if !s.redis.Enabled() {
		return "", ErrRedisDisabled
	}
	val, err := s.redis.Client.Get(ctx, s.key(ticketID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

// Set records level for ticketID.
func (s *SLALevelStore) Set(ctx context.Context, ticketID, level string) error {
	if !s.redis.Enabled() {
		return ErrRedisDisabled
	}
	return s.redis.Client.Set(ctx, s.key(ticketID), level, levelTTL).Err()
}

func (s *SLALevelStore) key(ticketID string) string {
	return s.redis.Key("sla_level", ticketID)
}
