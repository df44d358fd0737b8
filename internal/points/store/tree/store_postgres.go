package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rotacultural/internal/points/models"
	"rotacultural/pkg/platform/sentinel"
)

const createTreeTableSQL = `
CREATE TABLE IF NOT EXISTS tree_records (
	parent     TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	fields     JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (parent, key)
)`

// PostgresTree stores one row per record, keyed by (parent path, key).
type PostgresTree struct {
	pool *pgxpool.Pool
}

// NewPostgresTree constructs a PostgreSQL-backed tree.
func NewPostgresTree(pool *pgxpool.Pool) *PostgresTree {
	return &PostgresTree{pool: pool}
}

// EnsureSchema creates the backing table when it does not exist.
func (t *PostgresTree) EnsureSchema(ctx context.Context) error {
	if _, err := t.pool.Exec(ctx, createTreeTableSQL); err != nil {
		return fmt.Errorf("create tree_records: %w", err)
	}
	return nil
}

func (t *PostgresTree) Get(ctx context.Context, path string) (models.Record, error) {
	parent, key, err := parentAndKey(path)
	if err != nil {
		return nil, err
	}
	var fields map[string]string
	err = t.pool.QueryRow(ctx,
		`SELECT fields FROM tree_records WHERE parent = $1 AND key = $2`,
		parent, key,
	).Scan(&fields)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return models.Record(fields), nil
}

func (t *PostgresTree) Children(ctx context.Context, path string) (map[string]models.Record, error) {
	p, err := canonical(path)
	if err != nil {
		return nil, err
	}
	rows, err := t.pool.Query(ctx,
		`SELECT key, fields FROM tree_records WHERE parent = $1`, p)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", p, err)
	}
	defer rows.Close()

	out := make(map[string]models.Record)
	for rows.Next() {
		var key string
		var fields map[string]string
		if err := rows.Scan(&key, &fields); err != nil {
			return nil, fmt.Errorf("scan child of %s: %w", p, err)
		}
		out[key] = models.Record(fields)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("children of %s: %w", p, err)
	}
	return out, nil
}

func (t *PostgresTree) Set(ctx context.Context, path string, rec models.Record) error {
	if len(rec) == 0 {
		return t.Delete(ctx, path)
	}
	parent, key, err := parentAndKey(path)
	if err != nil {
		return err
	}
	_, err = t.pool.Exec(ctx, `
		INSERT INTO tree_records (parent, key, fields, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (parent, key) DO UPDATE
		SET fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at`,
		parent, key, map[string]string(rec),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (t *PostgresTree) Delete(ctx context.Context, path string) error {
	p, err := canonical(path)
	if err != nil {
		return err
	}
	parent, key := "", p
	if pp, k, err := parentAndKey(p); err == nil {
		parent, key = pp, k
	}
	_, err = t.pool.Exec(ctx, `
		DELETE FROM tree_records
		WHERE (parent = $1 AND key = $2)
		   OR parent = $3
		   OR parent LIKE $4`,
		parent, key, p, escapeLike(p)+"/%",
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

func (t *PostgresTree) Push(ctx context.Context, parent string, rec models.Record) (string, error) {
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

// escapeLike makes path safe to use as a LIKE prefix.
func escapeLike(path string) string {
	return likeEscaper.Replace(path)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Health pings the database.
func (t *PostgresTree) Health(ctx context.Context) error {
	return t.pool.Ping(ctx)
}
