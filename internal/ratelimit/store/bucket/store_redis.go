package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rotacultural/internal/ratelimit/models"
)

// slidingWindowScript trims the window, then admits the request only when
// the sorted set still has room. Scores are unix milliseconds.
//
// KEYS[1] bucket key
// ARGV[1] now ms, ARGV[2] window ms, ARGV[3] limit, ARGV[4] member
// Returns {allowed, count, oldest score}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local first = now
if oldest[2] then first = tonumber(oldest[2]) end
return {allowed, count, first}
`)

// RedisBucketStore keeps sliding windows in Redis sorted sets so every
// instance sharing the Redis shares the budget.
type RedisBucketStore struct {
	client *redis.Client
	prefix string
	clock  func() time.Time
}

// RedisOption configures a RedisBucketStore.
type RedisOption func(*RedisBucketStore)

// WithRedisKeyPrefix namespaces bucket keys.
func WithRedisKeyPrefix(prefix string) RedisOption {
	return func(s *RedisBucketStore) {
		if prefix != "" {
			s.prefix = prefix + ":"
		}
	}
}

func NewRedisBucketStore(client *redis.Client, opts ...RedisOption) *RedisBucketStore {
	s := &RedisBucketStore{client: client, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow records one request for key if the window still has room.
func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := s.clock()
	res, err := slidingWindowScript.Run(ctx, s.client, []string{s.prefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected reply length %d", len(res))
	}

	resetAt := time.UnixMilli(res[2]).Add(window)
	result := &models.RateLimitResult{
		Allowed:   res[0] == 1,
		Limit:     limit,
		Remaining: max(limit-int(res[1]), 0),
		ResetAt:   resetAt,
	}
	if !result.Allowed {
		result.RetryAfter = models.RetryAfterSeconds(now, resetAt)
	}
	return result, nil
}

// Reset clears the counter for a key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
