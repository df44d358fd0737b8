package tree_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"rotacultural/internal/points/models"
	"rotacultural/internal/points/store/tree"
	"rotacultural/pkg/platform/circuit"
	"rotacultural/pkg/platform/sentinel"
)

type BreakerTreeSuite struct {
	treeContract
}

func TestBreakerTreeSuite(t *testing.T) {
	suite.Run(t, new(BreakerTreeSuite))
}

func (s *BreakerTreeSuite) SetupTest() {
	s.tree = tree.NewBreakerTree(tree.NewInMemoryTree(), circuit.New("memory", circuit.WithFailureThreshold(1)), nil)
}

// flakyStore fails every Children call while down is set.
type flakyStore struct {
	*tree.InMemoryTree
	down  bool
	calls int
}

func (f *flakyStore) Children(ctx context.Context, path string) (map[string]models.Record, error) {
	f.calls++
	if f.down {
		return nil, errors.New("dial tcp 10.0.0.5:6379: connection refused")
	}
	return f.InMemoryTree.Children(ctx, path)
}

func TestBreakerTreeOpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &flakyStore{InMemoryTree: tree.NewInMemoryTree(), down: true}
	breaker := circuit.New("redis",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	bt := tree.NewBreakerTree(store, breaker, nil)

	for range 2 {
		_, err := bt.Children(ctx, "points")
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrUnavailable)
	}
	require.True(t, breaker.IsOpen())

	_, err := bt.Children(ctx, "points")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Equal(t, 2, store.calls, "open circuit does not reach the store")

	store.down = false
	now = now.Add(time.Minute)
	_, err = bt.Children(ctx, "points")
	require.NoError(t, err)
	assert.False(t, breaker.IsOpen())
}

func TestBreakerTreeIgnoresMissingRecords(t *testing.T) {
	breaker := circuit.New("memory", circuit.WithFailureThreshold(1))
	bt := tree.NewBreakerTree(tree.NewInMemoryTree(), breaker, nil)

	_, err := bt.Get(context.Background(), "points/absent")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = bt.Get(context.Background(), "points//bad")
	require.ErrorIs(t, err, sentinel.ErrInvalidPath)
	assert.False(t, breaker.IsOpen())
}

// abandonedStore reports the caller's context error, as a backend does when
// the request is cancelled mid-call.
type abandonedStore struct {
	*tree.InMemoryTree
}

func (a *abandonedStore) Children(ctx context.Context, path string) (map[string]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("redis: children of %q: %w", path, err)
	}
	return nil, fmt.Errorf("redis: children of %q: %w", path, context.DeadlineExceeded)
}

func TestBreakerTreeIgnoresAbandonedCalls(t *testing.T) {
	breaker := circuit.New("redis", circuit.WithFailureThreshold(1))
	bt := tree.NewBreakerTree(&abandonedStore{InMemoryTree: tree.NewInMemoryTree()}, breaker, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := bt.Children(ctx, "points")
	require.ErrorIs(t, err, context.Canceled)

	_, err = bt.Children(context.Background(), "points")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.False(t, breaker.IsOpen())
}
