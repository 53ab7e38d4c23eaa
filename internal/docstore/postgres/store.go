// Package postgres implements docstore.Store on a JSONB documents table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediadiary-server/internal/docstore"
)

// Store keeps documents in the documents table created by the postgres migrations.
type Store struct {
	pool *pgxpool.Pool
}

var _ docstore.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Get(ctx context.Context, ref docstore.Ref) (docstore.Doc, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM documents WHERE collection = $1 AND key = $2`, ref.Collection, ref.Key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	return docstore.Unmarshal(body)
}

// Commit runs the batch in one transaction. Every touched row is locked before it is
// read so concurrent increments on the same aggregate document serialize.
func (s *Store) Commit(ctx context.Context, b *docstore.Batch) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, w := range b.Writes() {
			if err := s.apply(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) apply(ctx context.Context, tx pgx.Tx, w docstore.Write) error {
	cur, exists, err := lock(ctx, tx, w.Ref)
	if err != nil {
		return err
	}
	// row reports whether a row is held, which a set may have materialized itself.
	row := exists
	if !exists && w.Op == docstore.OpSet {
		// Materialize the row so a concurrent first increment blocks on it instead of racing.
		tag, err := tx.Exec(ctx, `INSERT INTO documents (collection, key) VALUES ($1, $2) ON CONFLICT DO NOTHING`, w.Ref.Collection, w.Ref.Key)
		if err != nil {
			return fmt.Errorf("%s: %w", w, err)
		}
		if cur, row, err = lock(ctx, tx, w.Ref); err != nil {
			return err
		}
		// A row inserted by another transaction is a real document; our placeholder is not.
		exists = row && tag.RowsAffected() == 0
		if !exists {
			cur = nil
		}
	}

	next, keep, err := docstore.Apply(cur, exists, w)
	if err != nil {
		return err
	}
	switch {
	case !keep && row:
		_, err = tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND key = $2`, w.Ref.Collection, w.Ref.Key)
	case !keep:
	case row:
		raw, merr := docstore.Marshal(next)
		if merr != nil {
			return merr
		}
		_, err = tx.Exec(ctx, `UPDATE documents SET body = $3::text::jsonb, updated_at = now() WHERE collection = $1 AND key = $2`,
			w.Ref.Collection, w.Ref.Key, string(raw))
	default:
		raw, merr := docstore.Marshal(next)
		if merr != nil {
			return merr
		}
		tag, ierr := tx.Exec(ctx, `INSERT INTO documents (collection, key, body) VALUES ($1, $2, $3::text::jsonb) ON CONFLICT DO NOTHING`,
			w.Ref.Collection, w.Ref.Key, string(raw))
		if ierr != nil {
			return fmt.Errorf("%s: %w", w, ierr)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s created concurrently", docstore.ErrPrecondition, w.Ref)
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", w, err)
	}
	return nil
}

func lock(ctx context.Context, tx pgx.Tx, ref docstore.Ref) (docstore.Doc, bool, error) {
	var body []byte
	err := tx.QueryRow(ctx, `SELECT body FROM documents WHERE collection = $1 AND key = $2 FOR UPDATE`, ref.Collection, ref.Key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", ref, err)
	}
	doc, err := docstore.Unmarshal(body)
	return doc, err == nil, err
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	stmt, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var out []docstore.Snapshot
	for rows.Next() {
		var key string
		var body []byte
		if err := rows.Scan(&key, &body); err != nil {
			return nil, err
		}
		doc, err := docstore.Unmarshal(body)
		if err != nil {
			return nil, err
		}
		out = append(out, docstore.Snapshot{Key: key, Data: doc})
	}
	return out, rows.Err()
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }

type builder struct {
	sb   strings.Builder
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *builder) field(name string) string { return "(body->" + b.arg(name) + "::text)" }

func (b *builder) jsonb(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode query value: %w", err)
	}
	return b.arg(string(raw)) + "::text::jsonb", nil
}

func buildQuery(q docstore.Query) (string, []any, error) {
	b := &builder{}
	b.sb.WriteString(`SELECT key, body FROM documents WHERE collection = ` + b.arg(q.Collection))

	for _, p := range q.Where {
		f := b.field(p.Field)
		switch p.Op {
		case docstore.OpEq:
			if p.Value == nil {
				b.sb.WriteString(` AND FALSE`)
				continue
			}
			v, err := b.jsonb(p.Value)
			if err != nil {
				return "", nil, err
			}
			b.sb.WriteString(` AND ` + f + ` = ` + v)
		case docstore.OpIn:
			vs := p.Value.([]any)
			parts := make([]string, 0, len(vs))
			for _, x := range vs {
				v, err := b.jsonb(x)
				if err != nil {
					return "", nil, err
				}
				parts = append(parts, v)
			}
			b.sb.WriteString(` AND ` + f + ` IN (` + strings.Join(parts, ", ") + `)`)
		case docstore.OpGt:
			v, err := b.jsonb(p.Value)
			if err != nil {
				return "", nil, err
			}
			b.sb.WriteString(` AND jsonb_typeof(` + f + `) = jsonb_typeof(` + v + `) AND ` + f + ` > ` + v)
		case docstore.OpExists:
			b.sb.WriteString(` AND coalesce(jsonb_typeof(` + f + `), 'null') <> 'null'`)
		}
	}

	dir, cmp := "ASC", ">"
	if q.Desc {
		dir, cmp = "DESC", "<"
	}
	if q.OrderBy == "" {
		if q.After != nil {
			b.sb.WriteString(` AND key ` + cmp + ` ` + b.arg(q.After.Key))
		}
		b.sb.WriteString(` ORDER BY key ` + dir)
	} else {
		f := b.field(q.OrderBy)
		b.sb.WriteString(` AND coalesce(jsonb_typeof(` + f + `), 'null') <> 'null'`)
		if q.After != nil {
			v, err := b.jsonb(q.After.Value)
			if err != nil {
				return "", nil, err
			}
			b.sb.WriteString(` AND (` + f + `, key) ` + cmp + ` (` + v + `, ` + b.arg(q.After.Key) + `::text)`)
		}
		b.sb.WriteString(` ORDER BY ` + f + ` ` + dir + `, key ` + dir)
	}
	if q.Limit > 0 {
		b.sb.WriteString(` LIMIT ` + strconv.Itoa(q.Limit))
	}
	return b.sb.String(), b.args, nil
}
