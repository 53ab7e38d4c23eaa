// Package sqlite implements docstore.Store on a single SQLite table of JSON documents.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mediadiary-server/internal/docstore"
)

// Store keeps documents in the documents table created by the sqlite migrations.
type Store struct {
	db *sql.DB
}

var _ docstore.Store = (*Store)(nil)

// New wraps an open database. SQLite allows one writer, so the pool is pinned to a
// single connection and batches serialize on it.
func New(db *sql.DB) *Store {
	db.SetMaxOpenConns(1)
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref) (docstore.Doc, error) {
	return get(ctx, s.db, ref)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q queryer, ref docstore.Ref) (docstore.Doc, error) {
	var body string
	err := q.QueryRowContext(ctx, `SELECT body FROM documents WHERE collection = ? AND key = ?`, ref.Collection, ref.Key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	return docstore.Unmarshal([]byte(body))
}

func (s *Store) Commit(ctx context.Context, b *docstore.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, w := range b.Writes() {
		cur, err := get(ctx, tx, w.Ref)
		exists := err == nil
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		next, keep, err := docstore.Apply(cur, exists, w)
		if err != nil {
			return err
		}
		if !keep {
			if exists {
				if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND key = ?`, w.Ref.Collection, w.Ref.Key); err != nil {
					return fmt.Errorf("%s: %w", w, err)
				}
			}
			continue
		}
		raw, err := docstore.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO documents (collection, key, body) VALUES (?, ?, ?)
			ON CONFLICT (collection, key) DO UPDATE SET body = excluded.body`, w.Ref.Collection, w.Ref.Key, string(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", w, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	stmt, args := buildQuery(q)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var out []docstore.Snapshot
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, err
		}
		doc, err := docstore.Unmarshal([]byte(body))
		if err != nil {
			return nil, err
		}
		out = append(out, docstore.Snapshot{Key: key, Data: doc})
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }

func path(field string) string { return `$."` + field + `"` }

func buildQuery(q docstore.Query) (string, []any) {
	var sb strings.Builder
	args := []any{q.Collection}
	sb.WriteString(`SELECT key, body FROM documents WHERE collection = ?`)

	for _, p := range q.Where {
		switch p.Op {
		case docstore.OpEq:
			sb.WriteString(` AND json_extract(body, ?) = ?`)
			args = append(args, path(p.Field), sqlValue(p.Value))
		case docstore.OpIn:
			vs := p.Value.([]any)
			sb.WriteString(` AND json_extract(body, ?) IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(vs)), ", ") + `)`)
			args = append(args, path(p.Field))
			for _, v := range vs {
				args = append(args, sqlValue(v))
			}
		case docstore.OpGt:
			sb.WriteString(` AND json_type(body, ?) IN (` + jsonTypes(p.Value) + `) AND json_extract(body, ?) > ?`)
			args = append(args, path(p.Field), path(p.Field), sqlValue(p.Value))
		case docstore.OpExists:
			sb.WriteString(` AND coalesce(json_type(body, ?), 'null') <> 'null'`)
			args = append(args, path(p.Field))
		}
	}

	dir := "ASC"
	cmp := ">"
	if q.Desc {
		dir, cmp = "DESC", "<"
	}
	if q.OrderBy == "" {
		if q.After != nil {
			sb.WriteString(` AND key ` + cmp + ` ?`)
			args = append(args, q.After.Key)
		}
		sb.WriteString(` ORDER BY key ` + dir)
	} else {
		sb.WriteString(` AND coalesce(json_type(body, ?), 'null') <> 'null'`)
		args = append(args, path(q.OrderBy))
		if q.After != nil {
			sb.WriteString(` AND (json_extract(body, ?), key) ` + cmp + ` (?, ?)`)
			args = append(args, path(q.OrderBy), sqlValue(q.After.Value), q.After.Key)
		}
		sb.WriteString(` ORDER BY json_extract(body, ?) ` + dir + `, key ` + dir)
		args = append(args, path(q.OrderBy))
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}
	return sb.String(), args
}

// sqlValue converts a JSON scalar to the value json_extract yields for it.
func sqlValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	default:
		return v
	}
}

func jsonTypes(v any) string {
	switch v.(type) {
	case string:
		return `'text'`
	case bool:
		return `'true', 'false'`
	default:
		return `'integer', 'real'`
	}
}
