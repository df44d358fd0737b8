package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rotacultural/internal/points/models"
	"rotacultural/pkg/platform/circuit"
	"rotacultural/pkg/platform/sentinel"
)

// Store is the full adapter contract shared by every tree implementation.
type Store interface {
	Get(ctx context.Context, path string) (models.Record, error)
	Children(ctx context.Context, path string) (map[string]models.Record, error)
	Set(ctx context.Context, path string, rec models.Record) error
	Delete(ctx context.Context, path string) error
	Push(ctx context.Context, parent string, rec models.Record) (string, error)
}

// BreakerTree fails fast with sentinel.ErrUnavailable while the wrapped
// store keeps failing. Missing records and bad paths are not failures.
type BreakerTree struct {
	next    Store
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewBreakerTree wraps next. A nil logger discards transition logs.
func NewBreakerTree(next Store, breaker *circuit.Breaker, logger *slog.Logger) *BreakerTree {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BreakerTree{next: next, breaker: breaker, logger: logger}
}

func (t *BreakerTree) Get(ctx context.Context, path string) (models.Record, error) {
	if err := t.admit(path); err != nil {
		return nil, err
	}
	rec, err := t.next.Get(ctx, path)
	t.record(ctx, err)
	return rec, err
}

func (t *BreakerTree) Children(ctx context.Context, path string) (map[string]models.Record, error) {
	if err := t.admit(path); err != nil {
		return nil, err
	}
	children, err := t.next.Children(ctx, path)
	t.record(ctx, err)
	return children, err
}

func (t *BreakerTree) Set(ctx context.Context, path string, rec models.Record) error {
	if err := t.admit(path); err != nil {
		return err
	}
	err := t.next.Set(ctx, path, rec)
	t.record(ctx, err)
	return err
}

func (t *BreakerTree) Delete(ctx context.Context, path string) error {
	if err := t.admit(path); err != nil {
		return err
	}
	err := t.next.Delete(ctx, path)
	t.record(ctx, err)
	return err
}

func (t *BreakerTree) Push(ctx context.Context, parent string, rec models.Record) (string, error) {
	if err := t.admit(parent); err != nil {
		return "", err
	}
	key, err := t.next.Push(ctx, parent, rec)
	t.record(ctx, err)
	return key, err
}

func (t *BreakerTree) admit(path string) error {
	if t.breaker.Allow() {
		return nil
	}
	return fmt.Errorf("%s store circuit open at %q: %w", t.breaker.Name(), path, sentinel.ErrUnavailable)
}

// record feeds the outcome to the breaker. A call abandoned by its caller says
// nothing about the backend and is not counted either way.
func (t *BreakerTree) record(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if err == nil || errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrInvalidPath) {
		if _, change := t.breaker.RecordSuccess(); change.Closed {
			t.logger.InfoContext(ctx, "store circuit closed", "store", t.breaker.Name())
		}
		return
	}
	if _, change := t.breaker.RecordFailure(); change.Opened {
		t.logger.WarnContext(ctx, "store circuit opened",
			"store", t.breaker.Name(),
			"error", err,
		)
	}
}
