package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"semstore/internal/adapter/vecmath"
	"semstore/internal/domain"
)

// BoltVectorStore implements VectorBackend on a single BoltDB file.
// Each collection is a bucket; search is brute force over the bucket.
type BoltVectorStore struct {
	db    *bbolt.DB
	limit int
}

// NewBoltVectorStore opens (or creates) the database at path.
func NewBoltVectorStore(path string) (*BoltVectorStore, error) {
	db, err := openBolt(path)
	if err != nil {
		return nil, err
	}
	return &BoltVectorStore{db: db, limit: vecmath.DefaultLimit}, nil
}

func (s *BoltVectorStore) Close() error {
	return s.db.Close()
}

func (s *BoltVectorStore) Supports(metric domain.Distance) bool {
	return vecmath.Supported(metric)
}

func (s *BoltVectorStore) CollectionExists(_ context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		_, exists, err = readMeta(tx, name)
		return err
	})
	if err != nil {
		return false, domain.Storage("collection exists", err)
	}
	return exists, nil
}

func (s *BoltVectorStore) CollectionInfo(_ context.Context, name string) (domain.Collection, bool, error) {
	var (
		meta   collectionMeta
		exists bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		meta, exists, err = readMeta(tx, name)
		return err
	})
	if err != nil {
		return domain.Collection{}, false, domain.Storage("collection info", err)
	}
	if !exists {
		return domain.Collection{}, false, nil
	}
	return domain.Collection{Name: name, Dimension: meta.Dimension, Distance: meta.Distance}, true, nil
}

func (s *BoltVectorStore) CreateCollection(_ context.Context, c domain.Collection) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		_, exists, err := readMeta(tx, c.Name)
		if err != nil || exists {
			return err
		}
		return writeCollection(tx, c)
	})
	if err != nil {
		return domain.Storage("create collection", err)
	}
	return nil
}

func (s *BoltVectorStore) RecreateCollection(_ context.Context, c domain.Collection) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := dropCollection(tx, c.Name); err != nil {
			return err
		}
		return writeCollection(tx, c)
	})
	if err != nil {
		return domain.Storage("recreate collection", err)
	}
	return nil
}

// Upsert writes all points in one transaction; a bad point aborts the whole batch.
func (s *BoltVectorStore) Upsert(_ context.Context, name string, points []domain.Point) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta, b, err := collectionTx(tx, name)
		if err != nil {
			return err
		}

		for _, p := range points {
			if len(p.Vector) != meta.Dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", meta.Dimension, len(p.Vector))
			}

			data, err := json.Marshal(storedPoint{Vector: p.Vector, Payload: p.Payload})
			if err != nil {
				return err
			}

			if err := b.Put([]byte(p.ID), data); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return domain.Storage("upsert", err)
	}
	return nil
}

// Search scores every point in the collection against vector.
func (s *BoltVectorStore) Search(_ context.Context, name string, vector []float32) ([]domain.QueryHit, error) {
	var hits []domain.QueryHit
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta, b, err := collectionTx(tx, name)
		if err != nil {
			return err
		}
		if len(vector) != meta.Dimension {
			return fmt.Errorf("query dimension mismatch: expected %d, got %d", meta.Dimension, len(vector))
		}

		hits = make([]domain.QueryHit, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var stored storedPoint
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			hits = append(hits, domain.QueryHit{
				ID:      string(k),
				Score:   vecmath.Score(meta.Distance, vector, stored.Vector),
				Payload: stored.Payload,
			})
			return nil
		})
	})
	if err != nil {
		return nil, domain.Storage("search", err)
	}
	return vecmath.Rank(hits, s.limit), nil
}

func (s *BoltVectorStore) Delete(_ context.Context, name string, ids []string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		_, b, err := collectionTx(tx, name)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Storage("delete", err)
	}
	return nil
}

func (s *BoltVectorStore) Count(_ context.Context, name string) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		_, b, err := collectionTx(tx, name)
		if err != nil {
			return err
		}
		n = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, domain.Storage("count", err)
	}
	return n, nil
}
