package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"takenotes/pkg/platform/sentinel"
)

const keyPrefix = "otp:cooldown:"

// RedisStore shares the issuance interval across gateway instances. A key is
// set with NX and a TTL equal to the interval; its presence means "wait".
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Acquire(ctx context.Context, email string, interval time.Duration) (time.Duration, error) {
	if interval <= 0 {
		return 0, nil
	}
	key := keyPrefix + email

	ok, err := s.client.SetNX(ctx, key, "1", interval).Result()
	if err != nil {
		return 0, fmt.Errorf("acquire issuance slot: %w", err)
	}
	if ok {
		return 0, nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("read issuance cooldown: %w", err)
	}
	if ttl <= 0 {
		// Key vanished or has no expiry; report the full interval rather than zero.
		ttl = interval
	}
	return ttl, fmt.Errorf("code issued too recently: %w", sentinel.ErrRateLimited)
}
