package tree

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"rotacultural/internal/points/models"
	"rotacultural/pkg/platform/sentinel"
)

const defaultRedisKeyPrefix = "tree"

// RedisTree stores each record as a Redis hash and tracks the child keys of
// every path in a set, so a namespace can be listed without SCAN.
//
//	<prefix>:node:points/<id>    hash of record fields
//	<prefix>:children:points     set of child keys below "points"
type RedisTree struct {
	client *redis.Client
	prefix string
}

// RedisTreeOption configures a RedisTree.
type RedisTreeOption func(*RedisTree)

// WithKeyPrefix namespaces every key written by the tree.
func WithKeyPrefix(prefix string) RedisTreeOption {
	return func(t *RedisTree) {
		if prefix != "" {
			t.prefix = prefix
		}
	}
}

// NewRedisTree constructs a Redis-backed tree. The client lifecycle is
// managed by the caller.
func NewRedisTree(client *redis.Client, opts ...RedisTreeOption) *RedisTree {
	t := &RedisTree{client: client, prefix: defaultRedisKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *RedisTree) nodeKey(path string) string {
	return t.prefix + ":node:" + path
}

func (t *RedisTree) childrenKey(path string) string {
	return t.prefix + ":children:" + path
}

func (t *RedisTree) Get(ctx context.Context, path string) (models.Record, error) {
	p, err := canonical(path)
	if err != nil {
		return nil, err
	}
	fields, err := t.client.HGetAll(ctx, t.nodeKey(p)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", p, err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return models.Record(fields), nil
}

func (t *RedisTree) Children(ctx context.Context, path string) (map[string]models.Record, error) {
	p, err := canonical(path)
	if err != nil {
		return nil, err
	}
	keys, err := t.client.SMembers(ctx, t.childrenKey(p)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers %s: %w", p, err)
	}
	out := make(map[string]models.Record, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	pipe := t.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(keys))
	for _, key := range keys {
		cmds[key] = pipe.HGetAll(ctx, t.nodeKey(Join(p, key)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis children of %s: %w", p, err)
	}
	for key, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// intermediate node without a record of its own
			continue
		}
		out[key] = models.Record(fields)
	}
	return out, nil
}

func (t *RedisTree) Set(ctx context.Context, path string, rec models.Record) error {
	if len(rec) == 0 {
		return t.Delete(ctx, path)
	}
	if _, _, err := parentAndKey(path); err != nil {
		return err
	}
	segments, _ := Split(path)
	p := Join(segments...)

	values := make(map[string]any, len(rec))
	for k, v := range rec {
		values[k] = v
	}
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, t.nodeKey(p))
		pipe.HSet(ctx, t.nodeKey(p), values)
		for i := 1; i < len(segments); i++ {
			pipe.SAdd(ctx, t.childrenKey(Join(segments[:i]...)), segments[i])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", p, err)
	}
	return nil
}

func (t *RedisTree) Delete(ctx context.Context, path string) error {
	segments, err := Split(path)
	if err != nil {
		return err
	}
	p := Join(segments...)

	keys, err := t.collectSubtree(ctx, p)
	if err != nil {
		return err
	}
	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		if len(segments) > 1 {
			parent := Join(segments[:len(segments)-1]...)
			pipe.SRem(ctx, t.childrenKey(parent), segments[len(segments)-1])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", p, err)
	}
	return nil
}

// collectSubtree returns the node and children keys of path and all of its
// descendants.
func (t *RedisTree) collectSubtree(ctx context.Context, path string) ([]string, error) {
	keys := []string{}
	pending := []string{path}
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		keys = append(keys, t.nodeKey(current), t.childrenKey(current))

		children, err := t.client.SMembers(ctx, t.childrenKey(current)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis smembers %s: %w", current, err)
		}
		for _, child := range children {
			pending = append(pending, Join(current, child))
		}
	}
	return keys, nil
}

func (t *RedisTree) Push(ctx context.Context, parent string, rec models.Record) (string, error) {
	base, err := canonical(parent)
	if err != nil {
		return "", err
	}
	key := newPushKey()
	if err := t.Set(ctx, Join(base, key), rec); err != nil {
		return "", err
	}
	return key, nil
}

// Health pings the server.
func (t *RedisTree) Health(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}
