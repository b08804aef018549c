package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
)

// schema describes how a table reads the bookkeeping fields of its rows.
type schema[T any, F any] struct {
	kind    string
	id      func(*T) *int64
	owner   func(*T) *string
	created func(*T) *time.Time
	updated func(*T) *time.Time
	match   func(T, F) bool
	less    func(a, b T) bool
}

// table is an owner-scoped map of rows. lock is nil for tables belonging to a
// transaction snapshot, which is already guarded by the store's mutex.
type table[T any, F any] struct {
	lock   *sync.Mutex
	now    func() time.Time
	rows   map[int64]T
	nextID int64
	schema schema[T, F]
}

func newTable[T any, F any](lock *sync.Mutex, now func() time.Time, s schema[T, F]) *table[T, F] {
	return &table[T, F]{lock: lock, now: now, rows: map[int64]T{}, schema: s}
}

func (t *table[T, F]) guard() func() {
	if t.lock == nil {
		return func() {}
	}
	t.lock.Lock()
	return t.lock.Unlock
}

func (t *table[T, F]) snapshot() *table[T, F] {
	rows := make(map[int64]T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	return &table[T, F]{now: t.now, rows: rows, nextID: t.nextID, schema: t.schema}
}

func (t *table[T, F]) restore(from *table[T, F]) {
	t.rows = from.rows
	t.nextID = from.nextID
}

func (t *table[T, F]) Create(_ context.Context, owner string, v *T) error {
	defer t.guard()()
	t.nextID++
	now := t.now()
	*t.schema.id(v) = t.nextID
	*t.schema.owner(v) = owner
	if t.schema.created != nil {
		*t.schema.created(v) = now
	}
	if t.schema.updated != nil {
		*t.schema.updated(v) = now
	}
	t.rows[t.nextID] = *v
	return nil
}

func (t *table[T, F]) get(owner string, id int64) (T, error) {
	v, ok := t.rows[id]
	if !ok || *t.schema.owner(&v) != owner {
		var zero T
		return zero, core.NotFound(t.schema.kind, id)
	}
	return v, nil
}

func (t *table[T, F]) Get(_ context.Context, owner string, id int64) (T, error) {
	defer t.guard()()
	return t.get(owner, id)
}

func (t *table[T, F]) List(_ context.Context, owner string, f F) ([]T, error) {
	defer t.guard()()
	out := []T{}
	for _, v := range t.rows {
		if *t.schema.owner(&v) != owner {
			continue
		}
		if t.schema.match != nil && !t.schema.match(v, f) {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if t.schema.less != nil {
			a, b := out[i], out[j]
			if t.schema.less(a, b) {
				return true
			}
			if t.schema.less(b, a) {
				return false
			}
		}
		return *t.schema.id(&out[i]) < *t.schema.id(&out[j])
	})
	return out, nil
}

func (t *table[T, F]) Update(_ context.Context, owner string, v *T) error {
	defer t.guard()()
	id := *t.schema.id(v)
	existing, err := t.get(owner, id)
	if err != nil {
		return err
	}
	*t.schema.owner(v) = owner
	if t.schema.created != nil {
		*t.schema.created(v) = *t.schema.created(&existing)
	}
	if t.schema.updated != nil {
		*t.schema.updated(v) = t.now()
	}
	t.rows[id] = *v
	return nil
}

func (t *table[T, F]) Delete(_ context.Context, owner string, id int64) error {
	defer t.guard()()
	if _, err := t.get(owner, id); err != nil {
		return err
	}
	delete(t.rows, id)
	return nil
}

func within(d, from, to core.Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
