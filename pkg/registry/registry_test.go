package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEntityCaseInsensitive(t *testing.T) {
	r := New()

	rec := r.AddEntity("Marie Curie", "Person", 0, 0)
	require.NotNil(t, rec)

	again := r.AddEntity("marie curie", "Scientist", 120, 3)
	assert.Same(t, rec, again)
	assert.Equal(t, 1, r.EntityCount())
	assert.Equal(t, "Marie Curie", again.Name)
	assert.Equal(t, "Person", again.Type, "first type wins")
	assert.Equal(t, 0, again.FirstSeenOffset)
	assert.Equal(t, 0, again.FirstSeenWindow)
}

func TestAddEntityFillsMissingType(t *testing.T) {
	r := New()
	r.AddEntity("Sorbonne", "", 0, 0)
	r.AddEntity("Sorbonne", "Organization", 40, 1)
	assert.Equal(t, "Organization", r.Entity("sorbonne").Type)
}

func TestAliasesIdempotentAndLowercase(t *testing.T) {
	r := New()
	r.AddEntity("Marie Curie", "Person", 0, 0)
	r.AddAlias("Marie Curie", "Madame Curie")
	r.AddAlias("marie curie", "MADAME CURIE")
	r.AddAlias("Marie Curie", "Marie Curie")

	rec := r.Entity("Marie Curie")
	assert.Equal(t, []string{"madame curie"}, rec.Aliases)
	assert.Equal(t, 1, r.EntityCount())
}

func TestResolveAlias(t *testing.T) {
	r := New()
	r.AddEntity("Marie Curie", "Person", 0, 0)
	r.AddAlias("Marie Curie", "Madame Curie")

	name, ok := r.ResolveAlias("MADAME curie")
	require.True(t, ok)
	assert.Equal(t, "Marie Curie", name)

	name, ok = r.ResolveAlias("marie curie")
	require.True(t, ok)
	assert.Equal(t, "Marie Curie", name)

	_, ok = r.ResolveAlias("Pierre Curie")
	assert.False(t, ok)
}

func TestAliasForUnknownEntityIgnored(t *testing.T) {
	r := New()
	r.AddAlias("Nobody", "Ghost")
	assert.False(t, r.HasEntity("Ghost"))
	assert.Equal(t, 0, r.EntityCount())
}

func TestPropertiesLastWriteWins(t *testing.T) {
	r := New()
	r.AddEntity("Marie Curie", "Person", 0, 0)
	r.AddProperty("Marie Curie", "birthDate", "1867")
	r.AddProperty("marie curie", "birthDate", "1867-11-07")

	assert.Equal(t, "1867-11-07", r.Entity("Marie Curie").Properties["birthDate"])
}

func TestEntitiesDiscoveryOrder(t *testing.T) {
	r := New()
	r.AddEntity("Zeta Labs", "Organization", 0, 0)
	r.AddEntity("Alice", "Person", 10, 0)
	r.AddEntity("Bob", "Person", 200, 1)

	var names []string
	for _, rec := range r.Entities() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"Zeta Labs", "Alice", "Bob"}, names)

	people := r.EntitiesOfType("Person")
	require.Len(t, people, 2)
	assert.Equal(t, "Alice", people[0].Name)
}

func TestLastEntityOfType(t *testing.T) {
	r := New()
	r.AddEntity("Alice", "Person", 10, 0)
	r.AddEntity("Bob", "Person", 200, 1)
	r.AddEntity("Acme Corp", "Organization", 50, 0)

	last := r.LastEntityOfType("Person")
	require.NotNil(t, last)
	assert.Equal(t, "Bob", last.Name)

	assert.Nil(t, r.LastEntityOfType("Place"))
}

func TestClear(t *testing.T) {
	r := New()
	r.AddEntity("Alice", "Person", 0, 0)
	r.Clear()
	assert.Equal(t, 0, r.EntityCount())
	assert.False(t, r.HasEntity("Alice"))
}

func TestContextSummaryEmpty(t *testing.T) {
	assert.Equal(t, "", New().ContextSummary())
}

func TestContextSummaryDeterministic(t *testing.T) {
	r := New()
	r.AddEntity("Marie Curie", "Person", 0, 0)
	r.AddAlias("Marie Curie", "Madame Curie")
	r.AddProperty("Marie Curie", "birthDate", "1867-11-07")
	r.AddProperty("Marie Curie", "award", "Nobel Prize in Physics")
	r.SetURI("Marie Curie", "http://dbpedia.org/resource/Marie_Curie")
	r.AddEntity("Pierre Curie", "Person", 300, 1)

	s := r.ContextSummary()
	assert.Contains(t, s, "ENTITIES ALREADY DISCOVERED IN THIS DOCUMENT:")
	assert.Contains(t, s, "- Marie Curie (Person) [also called: madame curie]")
	assert.Contains(t, s, "[@id: http://dbpedia.org/resource/Marie_Curie]")
	assert.Contains(t, s, "[award: Nobel Prize in Physics] [birthDate: 1867-11-07]")
	assert.Contains(t, s, "- Pierre Curie (Person)")

	// Marie was discovered first.
	assert.Less(t, strings.Index(s, "Marie Curie"), strings.Index(s, "Pierre Curie"))

	// Repeated renders are byte-identical.
	assert.Equal(t, s, r.ContextSummary())
}

func TestContextSummaryBounded(t *testing.T) {
	r := New()
	r.MaxContextEntities = 2
	r.AddEntity("A1", "Thing", 0, 0)
	r.AddEntity("B2", "Thing", 5, 0)
	r.AddEntity("C3", "Thing", 10, 0)

	s := r.ContextSummary()
	assert.Contains(t, s, "- A1 (Thing)")
	assert.Contains(t, s, "- B2 (Thing)")
	assert.NotContains(t, s, "- C3 (Thing)")
}
