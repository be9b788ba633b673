package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
)

type ToFirestoreFunc[T any] func(*T) map[string]interface{}
type FromFirestoreFunc[T any] func(map[string]interface{}) *T

type Collection[T any] struct {
	Ref           *firestore.CollectionRef
	ToFirestore   ToFirestoreFunc[T]
	FromFirestore FromFirestoreFunc[T]
}

func (c *Collection[T]) Doc(id string) *DocumentRef[T] {
	return &DocumentRef[T]{
		Ref:           c.Ref.Doc(id),
		ToFirestore:   c.ToFirestore,
		FromFirestore: c.FromFirestore,
	}
}

func (c *Collection[T]) NewDoc() *DocumentRef[T] {
	return &DocumentRef[T]{
		Ref:           c.Ref.NewDoc(),
		ToFirestore:   c.ToFirestore,
		FromFirestore: c.FromFirestore,
	}
}

// Documents lists every document in the collection.
func (c *Collection[T]) Documents(ctx context.Context) ([]*T, []string, error) {
	q := &Query[T]{q: c.Ref.Query, FromFirestore: c.FromFirestore}
	return q.Documents(ctx)
}

// Where starts a filtered query on the collection.
func (c *Collection[T]) Where(path, op string, value interface{}) *Query[T] {
	return &Query[T]{
		q:             c.Ref.Where(path, op, value),
		FromFirestore: c.FromFirestore,
	}
}

type Query[T any] struct {
	q             firestore.Query
	FromFirestore FromFirestoreFunc[T]
}

func (q *Query[T]) Where(path, op string, value interface{}) *Query[T] {
	return &Query[T]{q: q.q.Where(path, op, value), FromFirestore: q.FromFirestore}
}

func (q *Query[T]) Limit(n int) *Query[T] {
	return &Query[T]{q: q.q.Limit(n), FromFirestore: q.FromFirestore}
}

// Documents runs the query and converts every snapshot. Document ids are
// returned alongside because several record types use the doc id as
// their identity.
func (q *Query[T]) Documents(ctx context.Context) ([]*T, []string, error) {
	snaps, err := q.q.Documents(ctx).GetAll()
	if err != nil {
		return nil, nil, err
	}
	out := make([]*T, 0, len(snaps))
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, q.FromFirestore(snap.Data()))
		ids = append(ids, snap.Ref.ID)
	}
	return out, ids, nil
}

type DocumentRef[T any] struct {
	Ref           *firestore.DocumentRef
	ToFirestore   ToFirestoreFunc[T]
	FromFirestore FromFirestoreFunc[T]
}

func (d *DocumentRef[T]) ID() string {
	return d.Ref.ID
}

func (d *DocumentRef[T]) Get(ctx context.Context) (*T, error) {
	snap, err := d.Ref.Get(ctx)
	if err != nil {
		return nil, err
	}
	return d.FromFirestore(snap.Data()), nil
}

func (d *DocumentRef[T]) Set(ctx context.Context, data *T) error {
	m := d.ToFirestore(data)
	_, err := d.Ref.Set(ctx, m, firestore.MergeAll)
	return err
}

func (d *DocumentRef[T]) Update(ctx context.Context, updates map[string]interface{}) error {
	// Simple map update - keys must match Firestore snake_case fields
	_, err := d.Ref.Set(ctx, updates, firestore.MergeAll)
	return err
}
