package http

import (
	"context"
	"net/http"
	"net/url"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type validator interface {
	Validate() error
}

// resource serves list/create/retrieve/update/delete for one kind of
// owner-scoped record. Hooks left nil fall back to the plain repository
// calls, validating the record first when it can validate itself.
type resource[T any, F any] struct {
	path string
	repo func() ledger.CRUD[T, F]
	id   func(*T) *int64

	// blank returns the defaults a created record starts from.
	blank func() T
	// filter builds the list filter from the query string.
	filter func(q url.Values) (F, error)
	// scope forces fields implied by the route before any write.
	scope func(*T)
	// visible hides records the route does not serve.
	visible func(T) bool

	create func(ctx context.Context, owner string, v *T) error
	update func(ctx context.Context, owner string, v *T) error
	remove func(ctx context.Context, owner string, id int64) error

	// view replaces a record with its presentation.
	view func(ctx context.Context, owner string, v T) (any, error)
	// list replaces the whole listing.
	list func(ctx context.Context, owner string, f F, q url.Values) (any, error)
}

func (res *resource[T, F]) register(mux *http.ServeMux) {
	collection := apiPrefix + "/" + res.path
	item := collection + "/{id}"
	mux.Handle("GET "+collection, ownerHandler(res.handleList))
	mux.Handle("POST "+collection, ownerHandler(res.handleCreate))
	mux.Handle("GET "+item, ownerHandler(res.handleGet))
	mux.Handle("PUT "+item, ownerHandler(res.handleUpdate))
	mux.Handle("PATCH "+item, ownerHandler(res.handleUpdate))
	mux.Handle("DELETE "+item, ownerHandler(res.handleDelete))
}

func (res *resource[T, F]) handleList(w http.ResponseWriter, r *http.Request, owner string) {
	var f F
	if res.filter != nil {
		var err error
		if f, err = res.filter(r.URL.Query()); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if res.list != nil {
		out, err := res.list(r.Context(), owner, f, r.URL.Query())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	items, err := res.repo().List(r.Context(), owner, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]any, 0, len(items))
	for _, v := range items {
		if res.visible != nil && !res.visible(v) {
			continue
		}
		shown, err := res.present(r.Context(), owner, v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, shown)
	}
	writeJSON(w, http.StatusOK, out)
}

func (res *resource[T, F]) handleCreate(w http.ResponseWriter, r *http.Request, owner string) {
	var v T
	if res.blank != nil {
		v = res.blank()
	}
	if err := NewRequestBodyParser(w, r).Decode(&v); err != nil {
		writeError(w, r, err)
		return
	}
	*res.id(&v) = 0
	if res.scope != nil {
		res.scope(&v)
	}

	create := res.create
	if create == nil {
		create = res.plainCreate
	}
	if err := create(r.Context(), owner, &v); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := res.present(r.Context(), owner, v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (res *resource[T, F]) handleGet(w http.ResponseWriter, r *http.Request, owner string) {
	v, err := res.load(r, owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := res.present(r.Context(), owner, v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUpdate applies the body over the stored record, so PUT and PATCH
// both accept partial bodies.
func (res *resource[T, F]) handleUpdate(w http.ResponseWriter, r *http.Request, owner string) {
	v, err := res.load(r, owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := *res.id(&v)
	if err := NewRequestBodyParser(w, r).Decode(&v); err != nil {
		writeError(w, r, err)
		return
	}
	*res.id(&v) = id
	if res.scope != nil {
		res.scope(&v)
	}

	update := res.update
	if update == nil {
		update = res.plainUpdate
	}
	if err := update(r.Context(), owner, &v); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := res.present(r.Context(), owner, v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (res *resource[T, F]) handleDelete(w http.ResponseWriter, r *http.Request, owner string) {
	v, err := res.load(r, owner)
	if err != nil {
		writeError(w, r, err)
		return
	}

	remove := res.remove
	if remove == nil {
		remove = res.repo().Delete
	}
	if err := remove(r.Context(), owner, *res.id(&v)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (res *resource[T, F]) load(r *http.Request, owner string) (T, error) {
	var zero T
	id, err := pathID(r)
	if err != nil {
		return zero, err
	}
	v, err := res.repo().Get(r.Context(), owner, id)
	if err != nil {
		return zero, err
	}
	if res.visible != nil && !res.visible(v) {
		return zero, core.NotFound(res.path, id)
	}
	return v, nil
}

func (res *resource[T, F]) present(ctx context.Context, owner string, v T) (any, error) {
	if res.view == nil {
		return v, nil
	}
	return res.view(ctx, owner, v)
}

func (res *resource[T, F]) plainCreate(ctx context.Context, owner string, v *T) error {
	if err := validate(v); err != nil {
		return err
	}
	return res.repo().Create(ctx, owner, v)
}

func (res *resource[T, F]) plainUpdate(ctx context.Context, owner string, v *T) error {
	if err := validate(v); err != nil {
		return err
	}
	return res.repo().Update(ctx, owner, v)
}

func validate(v any) error {
	if val, ok := v.(validator); ok {
		return val.Validate()
	}
	return nil
}
