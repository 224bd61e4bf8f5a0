// Package repositories is the data access layer: typed CRUD over a backend
// collection with ownership stamping and owner-scoped reads.
package repositories

import (
	"context"
	"fmt"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/common"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/session"
)

const zeroTimestamp = "0001-01-01T00:00:00Z"

// serverFields are assigned by the store and dropped from writes when unset.
var serverFields = []string{"id", "created_at", "updated_at"}

type Repository[T models.Record] struct {
	coll    models.Collection
	backend backend.Backend
	session session.Provider
	log     logging.Logger
}

func New[T models.Record](coll models.Collection, be backend.Backend, sp session.Provider, log logging.Logger) *Repository[T] {
	return &Repository[T]{
		coll:    coll,
		backend: be,
		session: sp,
		log:     log.With("collection", coll.Name),
	}
}

func (r *Repository[T]) Collection() models.Collection {
	return r.coll
}

// Create persists one record and returns it with server-assigned fields.
func (r *Repository[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	out, err := r.CreateMany(ctx, []T{rec})
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("create %s: no row returned", r.coll.Name)
	}
	return out[0], nil
}

// CreateMany persists records in one backend call. Each record without an
// owner is stamped with the current identity; with no identity the call
// fails with common.ErrNotAuthenticated before reaching the backend.
func (r *Repository[T]) CreateMany(ctx context.Context, recs []T) ([]T, error) {
	rows := make([]backend.Row, 0, len(recs))
	for _, rec := range recs {
		row, err := backend.RowOf(rec)
		if err != nil {
			return nil, err
		}
		dropUnsetServerFields(row)
		if err := r.stampOwner(ctx, row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	inserted, err := r.backend.Insert(ctx, r.coll.Name, rows...)
	if err != nil {
		r.log.Error(ctx, "create failed", "error", err)
		return nil, err
	}
	out, err := decodeRows[T](inserted)
	if err != nil {
		return nil, err
	}
	r.log.Info(ctx, "records created", "count", len(out))
	return out, nil
}

// Update applies a partial field set to one record. For collections keyed by
// owner the owner column is re-stamped with the identity performing the update.
// The record is only changed when it also matches every where filter.
func (r *Repository[T]) Update(ctx context.Context, id string, patch backend.Row, where ...backend.Filter) ([]T, error) {
	patch = patch.Clone()
	if patch == nil {
		patch = backend.Row{}
	}
	delete(patch, "id")
	if r.coll.KeyedByOwner {
		ident, ok := r.session.CurrentIdentity(ctx)
		if !ok {
			return nil, common.ErrNotAuthenticated
		}
		patch[models.FieldUserID] = ident.ID
	}

	updated, err := r.backend.Update(ctx, r.coll.Name, id, patch, where...)
	if err != nil {
		r.log.Error(ctx, "update failed", "id", id, "error", err)
		return nil, err
	}
	r.log.Info(ctx, "record updated", "id", id, "matched", len(updated))
	return decodeRows[T](updated)
}

// Delete removes one record by id. Nothing referencing it is removed.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	if err := r.backend.Delete(ctx, r.coll.Name, id); err != nil {
		r.log.Error(ctx, "delete failed", "id", id, "error", err)
		return err
	}
	r.log.Info(ctx, "record deleted", "id", id)
	return nil
}

// List fetches the current identity's records matching q.
func (r *Repository[T]) List(ctx context.Context, q backend.Query) ([]T, error) {
	ident, ok := r.session.CurrentIdentity(ctx)
	if !ok {
		return nil, common.ErrNotAuthenticated
	}
	q.Filters = append([]backend.Filter{r.coll.OwnerFilter(ident.ID)}, q.Filters...)

	rows, err := r.backend.Select(ctx, r.coll.Name, q)
	if err != nil {
		r.log.Error(ctx, "fetch failed", "error", err)
		return nil, err
	}
	return decodeRows[T](rows)
}

// Get returns one owned record or common.ErrNotFound.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	recs, err := r.List(ctx, backend.Query{Filters: []backend.Filter{backend.Eq(models.FieldID, id)}, Limit: 1})
	if err != nil {
		return zero, err
	}
	if len(recs) == 0 {
		return zero, fmt.Errorf("%s %s: %w", r.coll.Name, id, common.ErrNotFound)
	}
	return recs[0], nil
}

func (r *Repository[T]) stampOwner(ctx context.Context, row backend.Row) error {
	owner := stringField(row, models.FieldUserID)
	if owner == "" && r.coll.KeyedByOwner {
		owner = stringField(row, models.FieldID)
	}
	if owner == "" {
		ident, ok := r.session.CurrentIdentity(ctx)
		if !ok {
			return common.ErrNotAuthenticated
		}
		owner = ident.ID
	}

	if stringField(row, models.FieldUserID) == "" {
		row[models.FieldUserID] = owner
	}
	if r.coll.KeyedByOwner && stringField(row, models.FieldID) == "" {
		row[models.FieldID] = owner
	}
	return nil
}

func stringField(row backend.Row, key string) string {
	s, _ := row[key].(string)
	return s
}

func dropUnsetServerFields(row backend.Row) {
	for _, f := range serverFields {
		v, ok := row[f]
		if !ok {
			continue
		}
		if v == nil || v == "" || v == zeroTimestamp {
			delete(row, f)
		}
	}
}

// Decode converts one backend row into a record.
func Decode[T models.Record](row backend.Row) (T, error) {
	var rec T
	if err := row.Decode(&rec); err != nil {
		return rec, err
	}
	return rec, nil
}

func decodeRows[T models.Record](rows []backend.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := Decode[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
