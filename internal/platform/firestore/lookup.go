package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
)

// DecodeFunc hydrates a typed row from a document snapshot.
type DecodeFunc[T any] func(snap *firestore.DocumentSnapshot) (T, error)

// LookupTable reads typed rows from a single collection by document ID. The rate
// store is read-only for this service, so keyed point lookups are the whole
// surface.
type LookupTable[T any] struct {
	provider   *Provider
	collection string
	decode     DecodeFunc[T]
}

// NewLookupTable binds a collection to a decoder. A nil decoder falls back to
// Firestore's native struct decoding.
func NewLookupTable[T any](provider *Provider, collection string, decode DecodeFunc[T]) *LookupTable[T] {
	if decode == nil {
		decode = func(snap *firestore.DocumentSnapshot) (T, error) {
			var row T
			if err := snap.DataTo(&row); err != nil {
				return row, err
			}
			return row, nil
		}
	}
	return &LookupTable[T]{
		provider:   provider,
		collection: strings.TrimSpace(collection),
		decode:     decode,
	}
}

// Get fetches and decodes the row stored under id. A missing document surfaces
// as a not-found StoreError so callers can tell a miss from an outage.
func (t *LookupTable[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if t == nil || t.provider == nil {
		return zero, WrapError(t.op(), errors.New("firestore: provider is nil"))
	}
	if t.collection == "" {
		return zero, WrapError(t.op(), errors.New("firestore: collection name is required"))
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return zero, WrapError(t.op(), errors.New("firestore: document id is required"))
	}

	client, err := t.provider.Client(ctx)
	if err != nil {
		return zero, err
	}

	snap, err := client.Collection(t.collection).Doc(id).Get(ctx)
	if err != nil {
		return zero, WrapError(t.op(), err)
	}

	row, err := t.decode(snap)
	if err != nil {
		return zero, fmt.Errorf("firestore: decode %s/%s: %w", t.collection, id, err)
	}
	return row, nil
}

func (t *LookupTable[T]) op() string {
	if t == nil || t.collection == "" {
		return "firestore.get"
	}
	return t.collection + ".get"
}
