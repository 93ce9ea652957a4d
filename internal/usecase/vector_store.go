package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"semstore/internal/domain"
	"semstore/internal/port"
)

// StoreOptions configures a VectorStore.
type StoreOptions struct {
	Backend    port.VectorBackend
	Embedder   port.Embedder
	Collection string
	// Distance defaults to cosine.
	Distance domain.Distance
	Policy   domain.Policy
	// IDs defaults to RandomIDs.
	IDs    port.IDGenerator
	Logger *slog.Logger
}

// VectorStore saves embedded records and answers similarity queries
// against a single collection.
type VectorStore struct {
	backend    port.VectorBackend
	embedder   port.Embedder
	codec      *PointCodec
	collection domain.Collection
	logger     *slog.Logger
}

// NewVectorStore provisions the collection, sized to the embedder's
// dimension, and returns a store bound to it.
func NewVectorStore(ctx context.Context, opts StoreOptions) (*VectorStore, error) {
	if opts.Backend == nil {
		return nil, domain.Configurationf("new vector store", "backend is required")
	}
	if opts.Embedder == nil {
		return nil, domain.Configurationf("new vector store", "embedder is required")
	}
	distance := opts.Distance
	if distance == "" {
		distance = domain.Cosine
	}
	logger := orDiscard(opts.Logger).With("collection", opts.Collection)

	dim := opts.Embedder.Dimension()
	manager := NewCollectionManager(opts.Backend, logger)
	if err := manager.EnsureCollection(ctx, opts.Collection, dim, distance, opts.Policy); err != nil {
		return nil, err
	}

	return &VectorStore{
		backend:  opts.Backend,
		embedder: opts.Embedder,
		codec:    NewPointCodec(opts.IDs),
		collection: domain.Collection{
			Name:      opts.Collection,
			Dimension: dim,
			Distance:  distance,
		},
		logger: logger,
	}, nil
}

// Collection returns the collection the store is bound to.
func (s *VectorStore) Collection() domain.Collection {
	return s.collection
}

// Save upserts a single record. It is not idempotent: with random IDs a
// retried call stores a second point.
func (s *VectorStore) Save(ctx context.Context, record domain.EmbeddedRecord) (bool, error) {
	if err := s.checkDimension("save", len(record.Vector)); err != nil {
		return false, err
	}

	point := s.codec.ToPoint(record)
	if err := s.backend.Upsert(ctx, s.collection.Name, []domain.Point{point}); err != nil {
		return false, asStorage("save", err)
	}

	s.logger.Debug("saved point", "id", point.ID, "ref", record.Ref)
	return true, nil
}

// SaveBatch validates every record before writing any of them, then
// upserts them together. It returns the number of points written.
func (s *VectorStore) SaveBatch(ctx context.Context, records []domain.EmbeddedRecord) (int, error) {
	for i, r := range records {
		if err := s.checkDimension(fmt.Sprintf("save batch record %d", i), len(r.Vector)); err != nil {
			return 0, err
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	points := s.codec.ToPoints(records)
	if err := s.backend.Upsert(ctx, s.collection.Name, points); err != nil {
		return 0, asStorage("save batch", err)
	}

	s.logger.Debug("saved points", "count", len(points))
	return len(points), nil
}

// Query embeds text and returns the payloads of the nearest points,
// most similar first. No match is an empty slice, not an error.
func (s *VectorStore) Query(ctx context.Context, text string) ([]domain.Payload, error) {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if domain.KindOf(err) == domain.KindEmbedding {
			return nil, err
		}
		return nil, domain.Embedding("query", err)
	}
	if err := s.checkDimension("query", len(vector)); err != nil {
		return nil, err
	}

	hits, err := s.backend.Search(ctx, s.collection.Name, vector)
	if err != nil {
		return nil, asStorage("query", err)
	}

	s.logger.Debug("search finished", "hits", len(hits))
	return Project(hits), nil
}

// Delete removes points by ID.
func (s *VectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.backend.Delete(ctx, s.collection.Name, ids); err != nil {
		return asStorage("delete", err)
	}
	return nil
}

// Count returns the number of points in the collection.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	n, err := s.backend.Count(ctx, s.collection.Name)
	if err != nil {
		return 0, asStorage("count", err)
	}
	return n, nil
}

func (s *VectorStore) checkDimension(op string, n int) error {
	if n != s.collection.Dimension {
		return domain.Configurationf(op, "vector has %d dimensions, collection %s expects %d", n, s.collection.Name, s.collection.Dimension)
	}
	return nil
}

// asStorage leaves storage errors alone and wraps everything else, so a
// lost connection surfaces as a storage error with the cause still attached.
func asStorage(op string, err error) error {
	if domain.KindOf(err) == domain.KindStorage {
		return err
	}
	return domain.Storage(op, err)
}
