package tree

import (
	"context"
	"sync"

	"rotacultural/internal/points/models"
	"rotacultural/pkg/platform/sentinel"
)

type memoryNode struct {
	record   models.Record
	children map[string]*memoryNode
}

func newMemoryNode() *memoryNode {
	return &memoryNode{children: make(map[string]*memoryNode)}
}

// InMemoryTree keeps the namespace in process memory. It backs tests and
// single-process development runs.
type InMemoryTree struct {
	mu   sync.RWMutex
	root *memoryNode
}

func NewInMemoryTree() *InMemoryTree {
	return &InMemoryTree{root: newMemoryNode()}
}

func (t *InMemoryTree) Get(_ context.Context, path string) (models.Record, error) {
	segments, err := Split(path)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	node := t.find(segments)
	if node == nil || node.record == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(node.record), nil
}

func (t *InMemoryTree) Children(_ context.Context, path string) (map[string]models.Record, error) {
	segments, err := Split(path)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]models.Record)
	node := t.find(segments)
	if node == nil {
		return out, nil
	}
	for key, child := range node.children {
		if child.record != nil {
			out[key] = copyRecord(child.record)
		}
	}
	return out, nil
}

func (t *InMemoryTree) Set(ctx context.Context, path string, rec models.Record) error {
	if len(rec) == 0 {
		return t.Delete(ctx, path)
	}
	if _, _, err := parentAndKey(path); err != nil {
		return err
	}
	segments, _ := Split(path)
	t.mu.Lock()
	defer t.mu.Unlock()
	node := t.root
	for _, s := range segments {
		next, ok := node.children[s]
		if !ok {
			next = newMemoryNode()
			node.children[s] = next
		}
		node = next
	}
	node.record = copyRecord(rec)
	return nil
}

func (t *InMemoryTree) Delete(_ context.Context, path string) error {
	segments, err := Split(path)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	parent := t.find(segments[:len(segments)-1])
	if parent == nil {
		return nil
	}
	delete(parent.children, segments[len(segments)-1])
	return nil
}

func (t *InMemoryTree) Push(ctx context.Context, parent string, rec models.Record) (string, error) {
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

// find walks segments from the root. Callers must hold the lock.
func (t *InMemoryTree) find(segments []string) *memoryNode {
	node := t.root
	for _, s := range segments {
		next, ok := node.children[s]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}

func copyRecord(rec models.Record) models.Record {
	out := make(models.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
