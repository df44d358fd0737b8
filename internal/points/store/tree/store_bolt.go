package tree

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	bolterrors "go.etcd.io/bbolt/errors"

	"rotacultural/internal/points/models"
	"rotacultural/pkg/platform/sentinel"
)

const defaultBoltBucket = "tree"

// BoltTree keeps the namespace in a local bbolt file. Every path segment is a
// nested bucket; a record's fields are the plain keys of its bucket.
type BoltTree struct {
	db   *bolt.DB
	root []byte
}

// BoltOptions configures OpenBoltTree.
type BoltOptions struct {
	// Bucket is the top-level bucket holding the tree. Defaults to "tree".
	Bucket string
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

// OpenBoltTree opens or creates the database file at path.
func OpenBoltTree(path string, opts BoltOptions) (*BoltTree, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	root := []byte(defaultBoltBucket)
	if opts.Bucket != "" {
		root = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(root)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt root bucket: %w", err)
	}
	return &BoltTree{db: db, root: root}, nil
}

// Close releases the database file.
func (t *BoltTree) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.Close()
}

func (t *BoltTree) Get(_ context.Context, path string) (models.Record, error) {
	segments, err := Split(path)
	if err != nil {
		return nil, err
	}
	var rec models.Record
	err = t.db.View(func(tx *bolt.Tx) error {
		b := lookupBucket(tx.Bucket(t.root), segments)
		if b == nil {
			return sentinel.ErrNotFound
		}
		rec = readFields(b)
		if len(rec) == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (t *BoltTree) Children(_ context.Context, path string) (map[string]models.Record, error) {
	segments, err := Split(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Record)
	err = t.db.View(func(tx *bolt.Tx) error {
		b := lookupBucket(tx.Bucket(t.root), segments)
		if b == nil {
			return nil
		}
		return b.ForEachBucket(func(k []byte) error {
			rec := readFields(b.Bucket(k))
			if len(rec) > 0 {
				out[string(k)] = rec
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bolt children of %s: %w", path, err)
	}
	return out, nil
}

func (t *BoltTree) Set(ctx context.Context, path string, rec models.Record) error {
	if len(rec) == 0 {
		return t.Delete(ctx, path)
	}
	if _, _, err := parentAndKey(path); err != nil {
		return err
	}
	segments, _ := Split(path)
	err := t.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.root)
		for _, s := range segments {
			next, err := b.CreateBucketIfNotExists([]byte(s))
			if err != nil {
				return err
			}
			b = next
		}
		if err := clearFields(b); err != nil {
			return err
		}
		for k, v := range rec {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt set %s: %w", path, err)
	}
	return nil
}

func (t *BoltTree) Delete(_ context.Context, path string) error {
	segments, err := Split(path)
	if err != nil {
		return err
	}
	err = t.db.Update(func(tx *bolt.Tx) error {
		parent := lookupBucket(tx.Bucket(t.root), segments[:len(segments)-1])
		if parent == nil {
			return nil
		}
		err := parent.DeleteBucket([]byte(segments[len(segments)-1]))
		if errors.Is(err, bolterrors.ErrBucketNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("bolt delete %s: %w", path, err)
	}
	return nil
}

func (t *BoltTree) Push(ctx context.Context, parent string, rec models.Record) (string, error) {
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

func lookupBucket(b *bolt.Bucket, segments []string) *bolt.Bucket {
	for _, s := range segments {
		if b == nil {
			return nil
		}
		b = b.Bucket([]byte(s))
	}
	return b
}

// readFields returns the plain keys of b; nested buckets are skipped.
func readFields(b *bolt.Bucket) models.Record {
	rec := models.Record{}
	_ = b.ForEach(func(k, v []byte) error {
		if v != nil {
			rec[string(k)] = string(v)
		}
		return nil
	})
	return rec
}

func clearFields(b *bolt.Bucket) error {
	var keys [][]byte
	_ = b.ForEach(func(k, v []byte) error {
		if v != nil {
			keys = append(keys, append([]byte(nil), k...))
		}
		return nil
	})
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
