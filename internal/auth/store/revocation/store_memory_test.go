package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTRL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	trl := NewInMemoryTRL(WithClock(func() time.Time { return now }))

	revoked, err := trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Minute))
	revoked, err = trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(time.Minute)
	revoked, err = trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "revocation lapses with the token")

	t.Run("empty jti is ignored", func(t *testing.T) {
		require.NoError(t, trl.RevokeToken(ctx, "", time.Minute))
		revoked, err := trl.IsRevoked(ctx, "")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("non-positive ttl is rejected", func(t *testing.T) {
		assert.ErrorIs(t, trl.RevokeToken(ctx, "jti-2", 0), ErrInvalidTTL)
	})
}
