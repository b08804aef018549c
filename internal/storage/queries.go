package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// table describes one owner-scoped resource: its writable columns, how to
// read a row back, and how filters translate to SQL.
type table[T any, F any] struct {
	kind    string
	name    string
	columns []string
	// selectSQL lists the columns read by scan; rows are aliased "t".
	selectSQL string
	from      string
	order     string
	values    func(*T) []any
	scan      func(rowScanner) (T, error)
	filter    func(F) ([]string, []any)
	id        func(*T) *int64
	// hasUpdatedAt is false for append-only tables.
	hasUpdatedAt bool
}

// resource binds a table description to a connection or transaction.
type resource[T any, F any] struct {
	db  DBTX
	now func() time.Time
	t   *table[T, F]
}

func (r resource[T, F]) Create(ctx context.Context, owner string, v *T) error {
	now := r.now()
	cols := append([]string{"owner_id"}, r.t.columns...)
	args := append([]any{owner}, r.t.values(v)...)
	cols = append(cols, "created_at")
	args = append(args, formatTime(now))
	if r.t.hasUpdatedAt {
		cols = append(cols, "updated_at")
		args = append(args, formatTime(now))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.t.name, strings.Join(cols, ", "), placeholders(len(cols)))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return r.wrap("create", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create %s: last insert id: %w", r.t.kind, err)
	}

	created, err := r.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	*v = created
	return nil
}

func (r resource[T, F]) Get(ctx context.Context, owner string, id int64) (T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE t.id = ? AND t.owner_id = ?", r.t.selectSQL, r.t.from)
	v, err := r.t.scan(r.db.QueryRowContext(ctx, query, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, core.NotFound(r.t.kind, id)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("get %s %d: %w", r.t.kind, id, err)
	}
	return v, nil
}

func (r resource[T, F]) List(ctx context.Context, owner string, f F) ([]T, error) {
	where := []string{"t.owner_id = ?"}
	args := []any{owner}
	if r.t.filter != nil {
		clauses, extra := r.t.filter(f)
		where = append(where, clauses...)
		args = append(args, extra...)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		r.t.selectSQL, r.t.from, strings.Join(where, " AND "), r.t.order)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.t.kind, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := r.t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.t.kind, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.t.kind, err)
	}
	return out, nil
}

func (r resource[T, F]) Update(ctx context.Context, owner string, v *T) error {
	sets := make([]string, 0, len(r.t.columns)+1)
	for _, c := range r.t.columns {
		sets = append(sets, c+" = ?")
	}
	args := r.t.values(v)
	if r.t.hasUpdatedAt {
		sets = append(sets, "updated_at = ?")
		args = append(args, formatTime(r.now()))
	}
	id := *r.t.id(v)
	args = append(args, id, owner)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND owner_id = ?", r.t.name, strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return r.wrap("update", err)
	}
	if err := expectRow(res, r.t.kind, id); err != nil {
		return err
	}

	updated, err := r.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	*v = updated
	return nil
}

func (r resource[T, F]) Delete(ctx context.Context, owner string, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND owner_id = ?", r.t.name)
	res, err := r.db.ExecContext(ctx, query, id, owner)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", r.t.kind, id, err)
	}
	return expectRow(res, r.t.kind, id)
}

// wrap turns constraint violations into validation errors.
func (r resource[T, F]) wrap(op string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return core.Invalid("", fmt.Sprintf("a %s with these values already exists", r.t.kind))
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return core.Invalid("", fmt.Sprintf("%s references a record that does not exist", r.t.kind))
	case strings.Contains(msg, "CHECK constraint failed"):
		return core.Invalid("", fmt.Sprintf("%s has an invalid value", r.t.kind))
	}
	return fmt.Errorf("%s %s: %w", op, r.t.kind, err)
}

func expectRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: rows affected: %w", kind, id, err)
	}
	if n == 0 {
		return core.NotFound(kind, id)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullableDate(d *core.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func datePtr(d core.Date) *core.Date {
	if d.IsZero() {
		return nil
	}
	return &d
}

func nullableTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

func timePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

// dateRange appends inclusive bounds on column for non-zero dates.
func dateRange(column string, from, to core.Date) ([]string, []any) {
	var clauses []string
	var args []any
	if !from.IsZero() {
		clauses = append(clauses, column+" >= ?")
		args = append(args, from.String())
	}
	if !to.IsZero() {
		clauses = append(clauses, column+" <= ?")
		args = append(args, to.String())
	}
	return clauses, args
}
