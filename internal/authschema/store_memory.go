package authschema

import (
	"context"
	"sort"
	"sync"

	"idauth/pkg/domain"
)

// InMemoryStore keeps definitions in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	schemas map[domain.SchemaCode]Schema
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{schemas: make(map[domain.SchemaCode]Schema)}
}

func (s *InMemoryStore) List(_ context.Context) ([]Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Schema, 0, len(s.schemas))
	for _, schema := range s.schemas {
		out = append(out, schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *InMemoryStore) Upsert(_ context.Context, schema *Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[schema.Code] = *schema
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, code domain.SchemaCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.schemas, code)
	return nil
}
