package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/go-textrdf/pkg/llm"
)

func TestWindowPromptDefaults(t *testing.T) {
	lib := NewLibrary()

	messages, err := lib.Extract().Window().Call(map[string]interface{}{
		"text": "Marie Curie was born in Warsaw.",
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "expert RDF extraction system")
	assert.Contains(t, messages[0].Content, "Do not escape unicode characters")

	assert.Equal(t, llm.RoleUser, messages[1].Role)
	assert.Contains(t, messages[1].Content, "Marie Curie was born in Warsaw.")
}

func TestWindowPromptRequiresText(t *testing.T) {
	lib := NewLibrary()

	_, err := lib.Extract().Window().Call(map[string]interface{}{})
	assert.Error(t, err)
}

func TestWindowPromptCustomSystem(t *testing.T) {
	lib := NewLibrary()

	messages, err := lib.Extract().Window().Call(map[string]interface{}{
		"text":          "Some passage.",
		"system_prompt": "Extract only people.",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(messages[0].Content, "Extract only people."))
	assert.NotContains(t, messages[0].Content, "expert RDF extraction system")
}

func TestWindowPromptPrependsContextSummary(t *testing.T) {
	lib := NewLibrary()

	messages, err := lib.Extract().Window().Call(map[string]interface{}{
		"text":            "She moved to Paris.",
		"context_summary": "ENTITIES ALREADY DISCOVERED IN THIS DOCUMENT:\n- Marie Curie (Person)\n",
	})
	require.NoError(t, err)

	user := messages[1].Content
	assert.Contains(t, user, "Marie Curie (Person)")
	assert.Less(t, strings.Index(user, "Marie Curie"), strings.Index(user, "She moved to Paris."),
		"entity context comes before the passage")
}

func TestCorrectionPromptCarriesFeedback(t *testing.T) {
	lib := NewLibrary()

	messages, err := lib.Extract().Correction().Call(map[string]interface{}{
		"text":     "Marie Curie was born in Warsaw.",
		"feedback": "Missing required property 'name'",
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, llm.RoleUser, messages[0].Role)
	assert.Contains(t, messages[0].Content, "previous extraction failed")
	assert.Contains(t, messages[0].Content, "Missing required property 'name'")
}

func TestChoosePromptNumbersCandidates(t *testing.T) {
	lib := NewLibrary()

	messages, err := lib.Disambiguate().Choose().Call(map[string]interface{}{
		"entity_name": "Paris",
		"passage":     "She moved to Paris to study physics.",
		"candidates": []Candidate{
			{Label: "Paris", URI: "http://dbpedia.org/resource/Paris", Types: []string{"Place"}},
			{Label: "Paris, Texas", URI: "http://dbpedia.org/resource/Paris,_Texas"},
		},
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)

	user := messages[1].Content
	assert.Contains(t, user, "1. Paris <http://dbpedia.org/resource/Paris> (Place)")
	assert.Contains(t, user, "2. Paris, Texas <http://dbpedia.org/resource/Paris,_Texas>")
	assert.Contains(t, messages[0].Content, "ONLY that number")
}

func TestChoosePromptRequiresCandidates(t *testing.T) {
	lib := NewLibrary()

	_, err := lib.Disambiguate().Choose().Call(map[string]interface{}{
		"entity_name": "Paris",
		"passage":     "some passage",
	})
	assert.Error(t, err)
}

func TestCorefRewritePrompt(t *testing.T) {
	lib := NewLibrary()

	messages, err := lib.Coref().Rewrite().Call(map[string]interface{}{
		"text": "Marie Curie won a prize. She was delighted.",
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1].Content, "She was delighted.")
}

func TestToPromptJSON(t *testing.T) {
	out, err := ToPromptJSON(map[string]string{"name": "Marie Curie"}, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Marie Curie"}`, out)

	indented, err := ToPromptJSON([]int{1, 2}, 2)
	require.NoError(t, err)
	assert.Contains(t, indented, "\n")
}
