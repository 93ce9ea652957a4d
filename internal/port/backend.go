package port

import (
	"context"

	"semstore/internal/domain"
)

// VectorBackend stores points in named collections and searches them.
type VectorBackend interface {
	// Supports reports whether the backend can index with the given metric.
	Supports(metric domain.Distance) bool

	// CollectionExists reports whether the named collection exists.
	// A failed lookup is returned as an error, never as false.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CollectionInfo returns the stored shape of the named collection.
	// The bool is false, with a zero Collection, when it does not exist.
	CollectionInfo(ctx context.Context, name string) (domain.Collection, bool, error)

	// CreateCollection creates the collection if it is absent.
	// Creating a collection that already exists is not an error.
	CreateCollection(ctx context.Context, c domain.Collection) error

	// RecreateCollection drops the collection with all its points and creates it again.
	RecreateCollection(ctx context.Context, c domain.Collection) error

	// Upsert writes points into the collection and waits for the acknowledgment.
	Upsert(ctx context.Context, collection string, points []domain.Point) error

	// Search returns the nearest points to vector, most similar first.
	// The result count is bounded by the backend's default limit.
	Search(ctx context.Context, collection string, vector []float32) ([]domain.QueryHit, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (int, error)
}

// IDGenerator assigns identity to a record on its way into the store.
type IDGenerator interface {
	NewID(record domain.EmbeddedRecord) string
}
