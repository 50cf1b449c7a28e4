package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GTDGit/groupbuy_api/internal/datastore"
)

// ErrNotFound is returned when a record does not exist in its collection.
var ErrNotFound = datastore.ErrNotFound

// Transactor groups repository calls into one atomic write.
type Transactor interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}

// DocumentRepository provides typed get/list/put/delete over one collection.
type DocumentRepository[T any] struct {
	store datastore.Store
	coll  datastore.Collection
	idOf  func(*T) string
}

func newDocumentRepository[T any](store datastore.Store, coll datastore.Collection, idOf func(*T) string) *DocumentRepository[T] {
	return &DocumentRepository[T]{store: store, coll: coll, idOf: idOf}
}

// List returns every record in insertion order.
func (r *DocumentRepository[T]) List(ctx context.Context) ([]T, error) {
	docs, err := r.store.List(ctx, r.coll)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Body, &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", r.coll, d.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Get returns the record with the given id or ErrNotFound.
func (r *DocumentRepository[T]) Get(ctx context.Context, id string) (*T, error) {
	doc, err := r.store.Get(ctx, r.coll, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(doc.Body, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", r.coll, id, err)
	}
	return &v, nil
}

// Exists reports whether id is present.
func (r *DocumentRepository[T]) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.store.Get(ctx, r.coll, id)
	if errors.Is(err, datastore.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Put inserts v or replaces the record with the same id.
func (r *DocumentRepository[T]) Put(ctx context.Context, v *T) error {
	id := r.idOf(v)
	if id == "" {
		return fmt.Errorf("put %s: empty identifier", r.coll)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", r.coll, id, err)
	}
	return r.store.Put(ctx, r.coll, id, body)
}

// Delete removes the record or returns ErrNotFound.
func (r *DocumentRepository[T]) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.coll, id)
}
