package memstore

import (
	"context"
	"fmt"
	"sync"

	"semstore/internal/adapter/vecmath"
	"semstore/internal/domain"
)

type collection struct {
	info   domain.Collection
	order  []string
	points map[string]domain.Point
}

// MemoryStore is an in-process VectorBackend. Points are lost when the process exits.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
	limit       int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*collection),
		limit:       vecmath.DefaultLimit,
	}
}

func (s *MemoryStore) Supports(metric domain.Distance) bool {
	return vecmath.Supported(metric)
}

func (s *MemoryStore) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *MemoryStore) CollectionInfo(_ context.Context, name string) (domain.Collection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	if !ok {
		return domain.Collection{}, false, nil
	}
	return col.info, true, nil
}

func (s *MemoryStore) CreateCollection(_ context.Context, c domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[c.Name]; ok {
		return nil
	}
	s.collections[c.Name] = newCollection(c)
	return nil
}

func (s *MemoryStore) RecreateCollection(_ context.Context, c domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[c.Name] = newCollection(c)
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, name string, points []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, err := s.get(name)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vector) != col.info.Dimension {
			return domain.Storage("upsert", fmt.Errorf("vector dimension mismatch: expected %d, got %d", col.info.Dimension, len(p.Vector)))
		}
	}
	for _, p := range points {
		if _, ok := col.points[p.ID]; !ok {
			col.order = append(col.order, p.ID)
		}
		col.points[p.ID] = p
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, name string, vector []float32) ([]domain.QueryHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, err := s.get(name)
	if err != nil {
		return nil, err
	}
	if len(vector) != col.info.Dimension {
		return nil, domain.Storage("search", fmt.Errorf("query dimension mismatch: expected %d, got %d", col.info.Dimension, len(vector)))
	}

	hits := make([]domain.QueryHit, 0, len(col.order))
	for _, id := range col.order {
		p := col.points[id]
		hits = append(hits, domain.QueryHit{
			ID:      p.ID,
			Score:   vecmath.Score(col.info.Distance, vector, p.Vector),
			Payload: p.Payload,
		})
	}
	return vecmath.Rank(hits, s.limit), nil
}

func (s *MemoryStore) Delete(_ context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, err := s.get(name)
	if err != nil {
		return err
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
		delete(col.points, id)
	}
	filtered := col.order[:0]
	for _, id := range col.order {
		if _, ok := drop[id]; !ok {
			filtered = append(filtered, id)
		}
	}
	col.order = filtered
	return nil
}

func (s *MemoryStore) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, err := s.get(name)
	if err != nil {
		return 0, err
	}
	return len(col.points), nil
}

func (s *MemoryStore) get(name string) (*collection, error) {
	col, ok := s.collections[name]
	if !ok {
		return nil, domain.Storage("memstore", fmt.Errorf("collection not found: %s", name))
	}
	return col, nil
}

func newCollection(c domain.Collection) *collection {
	return &collection{
		info:   c,
		points: make(map[string]domain.Point),
	}
}
