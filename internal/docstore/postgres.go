package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_data_idx ON documents USING GIN (data jsonb_path_ops);
`

// NotifyChannel is the LISTEN/NOTIFY channel carrying the names of changed
// collections.
const NotifyChannel = "docstore_changes"

// Postgres stores documents as JSONB rows in a single table.
type Postgres struct {
	db  *sql.DB
	dsn string
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an open database and creates the documents table. dsn is
// used to open dedicated listener connections for Watch.
func NewPostgres(ctx context.Context, db *sql.DB, dsn string) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}
	return &Postgres{db: db, dsn: dsn}, nil
}

type sqlRunner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (p *Postgres) Create(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return p.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Create(collection, id, data)
	})
}

func (p *Postgres) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return p.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Set(collection, id, data)
	})
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (*Document, error) {
	return getDocument(ctx, p.db, collection, id, false)
}

func (p *Postgres) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	return p.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Update(collection, id, patch)
	})
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	return p.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Delete(collection, id)
	})
}

func (p *Postgres) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	stmt, args, err := buildSelect(q, false)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		data, err := decodeDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", q.Collection, id, err)
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", q.Collection, err)
	}
	return docs, nil
}

func (p *Postgres) Count(ctx context.Context, q Query) (int, error) {
	if err := validateQuery(q); err != nil {
		return 0, err
	}
	q.Limit, q.Offset, q.OrderBy = 0, 0, ""

	stmt, args, err := buildSelect(q, true)
	if err != nil {
		return 0, err
	}

	var total int
	if err := p.db.QueryRowContext(ctx, stmt, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.Collection, err)
	}
	return total, nil
}

// RunTransaction reads with SELECT ... FOR UPDATE, so concurrent transactions
// touching the same documents serialize instead of aborting.
func (p *Postgres) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &pgTx{ctx: ctx, tx: sqlTx, changed: make(map[string]struct{})}
	if err := fn(ctx, tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	for collection := range tx.changed {
		if _, err := sqlTx.ExecContext(ctx, "SELECT pg_notify($1, $2)", NotifyChannel, collection); err != nil {
			_ = sqlTx.Rollback()
			return fmt.Errorf("failed to notify %s: %w", collection, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Watch opens a dedicated LISTEN connection and re-runs q whenever a
// transaction touching q.Collection commits.
func (p *Postgres) Watch(ctx context.Context, q Query) (<-chan Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	listener := pq.NewListener(p.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithError(err).WithField("collection", q.Collection).Warn("docstore listener event")
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", NotifyChannel, err)
	}

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		defer listener.Close()

		send := func() bool {
			docs, err := p.Query(ctx, q)
			select {
			case out <- Snapshot{Documents: docs, ReadTime: time.Now().UTC(), Err: err}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				// nil means the connection was re-established and events may
				// have been missed.
				if n != nil && n.Extra != q.Collection {
					continue
				}
				if !send() {
					return
				}
			case <-time.After(90 * time.Second):
				go listener.Ping()
			}
		}
	}()

	return out, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

type pgTx struct {
	ctx     context.Context
	tx      *sql.Tx
	changed map[string]struct{}
	wrote   bool
}

func (t *pgTx) Get(collection, id string) (*Document, error) {
	if t.wrote {
		return nil, fmt.Errorf("read after write in transaction: %w", ErrInvalidQuery)
	}
	return getDocument(t.ctx, t.tx, collection, id, true)
}

func (t *pgTx) Create(collection, id string, data map[string]interface{}) error {
	raw, err := encodeDocument(data)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO NOTHING
	`, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("failed to create %s/%s: %w", collection, id, err)
	}
	if err := requireRow(res, collection, id, ErrAlreadyExists); err != nil {
		return err
	}
	t.touch(collection)
	return nil
}

func (t *pgTx) Set(collection, id string, data map[string]interface{}) error {
	raw, err := encodeDocument(data)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	t.touch(collection)
	return nil
}

func (t *pgTx) Update(collection, id string, patch map[string]interface{}) error {
	raw, err := encodeDocument(patch)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
	`, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if err := requireRow(res, collection, id, ErrNotFound); err != nil {
		return err
	}
	t.touch(collection)
	return nil
}

func (t *pgTx) Delete(collection, id string) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if err := requireRow(res, collection, id, ErrNotFound); err != nil {
		return err
	}
	t.touch(collection)
	return nil
}

func (t *pgTx) touch(collection string) {
	t.wrote = true
	t.changed[collection] = struct{}{}
}

func getDocument(ctx context.Context, r sqlRunner, collection, id string, forUpdate bool) (*Document, error) {
	stmt := `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	if forUpdate {
		stmt += ` FOR UPDATE`
	}

	var raw []byte
	err := r.QueryRowContext(ctx, stmt, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}

	data, err := decodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, err)
	}
	return &Document{ID: id, Data: data}, nil
}

func requireRow(res sql.Result, collection, id string, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, sentinel)
	}
	return nil
}

// buildSelect renders q as SQL. Field names travel as parameters, never as
// part of the statement text.
func buildSelect(q Query, count bool) (string, []interface{}, error) {
	args := []interface{}{q.Collection}
	where := []string{"collection = $1"}

	for _, f := range q.Filters {
		val, err := encodeJSONValue(f.Value)
		if err != nil {
			return "", nil, err
		}
		args = append(args, f.Field, val)
		fi, vi := len(args)-1, len(args)

		if f.Op == OpEqual {
			where = append(where, fmt.Sprintf("data @> jsonb_build_object($%d::text, $%d::jsonb)", fi, vi))
			continue
		}
		where = append(where, fmt.Sprintf(
			"jsonb_typeof(data->($%d::text)) = jsonb_typeof($%d::jsonb) AND data->($%d::text) %s $%d::jsonb",
			fi, vi, fi, string(f.Op), vi,
		))
	}

	orderIdx := 0
	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		orderIdx = len(args)
		where = append(where, fmt.Sprintf("data ? ($%d::text)", orderIdx))
	}

	var sb strings.Builder
	if count {
		sb.WriteString("SELECT count(*) FROM documents WHERE ")
	} else {
		sb.WriteString("SELECT id, data FROM documents WHERE ")
	}
	sb.WriteString(strings.Join(where, " AND "))

	if count {
		return sb.String(), args, nil
	}

	if orderIdx > 0 {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY data->($%d::text) %s, id", orderIdx, dir)
	} else {
		sb.WriteString(" ORDER BY id")
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
	}
	return sb.String(), args, nil
}
