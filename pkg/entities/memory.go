package entities

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and single-process development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Kind]map[string]Entity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[Kind]map[string]Entity),
	}
}

func (s *MemoryStore) Find(ctx context.Context, kind Kind, id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.records[kind][id]
	if !ok {
		return nil, ErrNotFound
	}

	return cloneEntity(entity), nil
}

// Update applies a shallow merge of top-level fields.
func (s *MemoryStore) Update(ctx context.Context, kind Kind, id string, patch map[string]any) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.records[kind][id]
	if !ok {
		return nil, ErrNotFound
	}

	for key, value := range patch {
		entity[key] = value
	}

	return cloneEntity(entity), nil
}

func (s *MemoryStore) Create(ctx context.Context, kind Kind, data map[string]any) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity := make(Entity, len(data)+1)
	for key, value := range data {
		entity[key] = value
	}

	// Producer payloads may carry anything under "id"; only a non-empty
	// string is usable as a key, everything else gets a generated one.
	id, ok := entity["id"].(string)
	if !ok || id == "" {
		id = uuid.New().String()
		entity["id"] = id
	}

	if s.records[kind] == nil {
		s.records[kind] = make(map[string]Entity)
	}

	s.records[kind][id] = entity

	return cloneEntity(entity), nil
}

// Seed inserts an entity with a known id, for tests.
func (s *MemoryStore) Seed(kind Kind, id string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity := make(Entity, len(data)+1)
	for key, value := range data {
		entity[key] = value
	}

	entity["id"] = id

	if s.records[kind] == nil {
		s.records[kind] = make(map[string]Entity)
	}

	s.records[kind][id] = entity
}

func cloneEntity(entity Entity) Entity {
	clone := make(Entity, len(entity))
	for key, value := range entity {
		clone[key] = value
	}

	return clone
}
