package kb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore() *MemoryStore {
	return NewMemoryStoreWith(
		Entity{URI: "http://dbpedia.org/resource/Marie_Curie", Label: "Marie Curie", Types: []string{"Person"}},
		Entity{URI: "http://dbpedia.org/resource/Pierre_Curie", Label: "Pierre Curie", Types: []string{"Person"}},
		Entity{URI: "http://dbpedia.org/resource/Curie_Institute", Label: "Curie Institute", Types: []string{"Organization"}},
	)
}

func TestLookupExact(t *testing.T) {
	s := testStore()

	got, err := s.Lookup(context.Background(), Query{Label: "marie curie"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "http://dbpedia.org/resource/Marie_Curie", got[0].URI)
}

func TestLookupSubstring(t *testing.T) {
	s := testStore()

	got, err := s.Lookup(context.Background(), Query{Label: "Curie", Substring: true})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestLookupExactFirst(t *testing.T) {
	s := testStore()
	require.NoError(t, s.Add(context.Background(),
		Entity{URI: "http://example.org/curie", Label: "Curie"}))

	got, err := s.Lookup(context.Background(), Query{Label: "Curie", Substring: true})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "http://example.org/curie", got[0].URI)
}

func TestLookupLimit(t *testing.T) {
	s := testStore()

	got, err := s.Lookup(context.Background(), Query{Label: "Curie", Substring: true, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLookupEmptyLabel(t *testing.T) {
	s := testStore()

	got, err := s.Lookup(context.Background(), Query{Label: "  "})
	require.NoError(t, err)
	assert.Empty(t, got)
}
