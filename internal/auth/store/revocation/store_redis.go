package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "trl:jti:"

// RedisTRL is a Redis-backed token revocation list shared by every instance
// pointing at the same Redis.
type RedisTRL struct {
	client *redis.Client
	prefix string
}

// RedisTRLOption configures a RedisTRL instance.
type RedisTRLOption func(*RedisTRL)

// WithKeyPrefix namespaces revocation keys.
func WithKeyPrefix(prefix string) RedisTRLOption {
	return func(t *RedisTRL) {
		if prefix != "" {
			t.prefix = prefix + ":" + defaultKeyPrefix
		}
	}
}

// NewRedisTRL constructs a Redis-backed token revocation list.
func NewRedisTRL(client *redis.Client, opts ...RedisTRLOption) *RedisTRL {
	trl := &RedisTRL{
		client: client,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

// RevokeToken adds a token to the revocation list with TTL.
func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	return t.client.Set(ctx, t.prefix+jti, "1", ttl).Err()
}

// IsRevoked checks if a token is in the revocation list. Expired entries are
// removed by Redis itself.
func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := t.client.Get(ctx, t.prefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
