// Package kb provides the knowledge-store backends that local entity linking
// queries for canonical identifiers.
package kb

import (
	"context"
	"strings"
	"sync"
)

// Entity is a knowledge-base entry a surface form can link to.
type Entity struct {
	// URI is the canonical identifier.
	URI string `json:"uri"`

	// Label is the primary human-readable name.
	Label string `json:"label"`

	// Types are the entity's type URIs or names.
	Types []string `json:"types,omitempty"`
}

// Query selects entities by label.
type Query struct {
	// Label matched case-insensitively against entity labels.
	Label string

	// Substring additionally returns entities whose label contains Label.
	Substring bool

	// Limit caps the number of results. Zero means no cap.
	Limit int
}

// Store is a queryable knowledge base.
type Store interface {
	// Lookup returns entities matching the query, exact label matches first.
	Lookup(ctx context.Context, q Query) ([]Entity, error)

	// Add inserts an entity.
	Add(ctx context.Context, e Entity) error

	// Close releases the store's resources.
	Close(ctx context.Context) error
}

// MemoryStore is an in-memory Store for tests and small fixed vocabularies.
type MemoryStore struct {
	mu       sync.RWMutex
	entities []Entity
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates a MemoryStore seeded with entities.
func NewMemoryStoreWith(entities ...Entity) *MemoryStore {
	return &MemoryStore{entities: entities}
}

func (s *MemoryStore) Add(_ context.Context, e Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append(s.entities, e)
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, q Query) ([]Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Label))
	if needle == "" {
		return nil, nil
	}

	var exact, contains []Entity
	for _, e := range s.entities {
		label := strings.ToLower(e.Label)
		switch {
		case label == needle:
			exact = append(exact, e)
		case q.Substring && strings.Contains(label, needle):
			contains = append(contains, e)
		}
	}

	out := append(exact, contains...)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
