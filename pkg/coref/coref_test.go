package coref

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/go-textrdf/pkg/llm"
)

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) Chat(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

func (m *mockLLMClient) Close() error {
	return m.Called().Error(0)
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, StrategyNone, ParseStrategy("none"))
	assert.Equal(t, StrategyNone, ParseStrategy("Disabled"))
	assert.Equal(t, StrategyLLMGuided, ParseStrategy("llm"))
	assert.Equal(t, StrategyRuleBased, ParseStrategy("rule-based"))
	assert.Equal(t, StrategyRuleBased, ParseStrategy("whatever"))
}

func TestNoneStrategyPassThrough(t *testing.T) {
	r, err := NewResolver(Config{Strategy: StrategyNone})
	require.NoError(t, err)

	text := "Dan Shalev founded Acme Corp. He served as CEO."
	res, err := r.Resolve(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, text, res.ResolvedText)
	assert.Empty(t, res.Clusters)
	assert.Empty(t, res.MentionMap)
}

func TestLLMGuidedRequiresClient(t *testing.T) {
	_, err := NewResolver(Config{Strategy: StrategyLLMGuided})
	assert.Error(t, err)
}

func TestRuleBasedMasculinePronoun(t *testing.T) {
	r, err := NewResolver(DefaultConfig())
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(),
		"Dan Shalev founded Acme Corp. He served as CEO for 10 years.")
	require.NoError(t, err)

	assert.Contains(t, res.ResolvedText, "Dan Shalev served as CEO")
	assert.NotContains(t, res.ResolvedText, "He served")
	assert.Equal(t, "Dan Shalev", res.MentionMap["He"])
}

func TestRuleBasedNeutralPronounPrefersOrganization(t *testing.T) {
	r, err := NewResolver(DefaultConfig())
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(),
		"Dan Shalev founded Acme Corp. It grew quickly.")
	require.NoError(t, err)

	assert.Contains(t, res.ResolvedText, "Acme Corp grew quickly")
	assert.Equal(t, "Acme Corp", res.MentionMap["It"])
}

func TestRuleBasedFemininePronoun(t *testing.T) {
	r, err := NewResolver(DefaultConfig())
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(),
		"Marie Curie discovered polonium. She won the Nobel Prize.")
	require.NoError(t, err)

	assert.Contains(t, res.ResolvedText, "Marie Curie won the Nobel Prize")
}

func TestRuleBasedUnresolvedPronounUntouched(t *testing.T) {
	r, err := NewResolver(DefaultConfig())
	require.NoError(t, err)

	// No organization candidate exists for "It".
	res, err := r.Resolve(context.Background(), "It was raining all day.")
	require.NoError(t, err)
	assert.Equal(t, "It was raining all day.", res.ResolvedText)
	assert.Empty(t, res.MentionMap)
}

func TestRuleBasedMaxDistance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDistance = 1
	r, err := NewResolver(cfg)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(),
		"Marie Curie was a physicist. The lab was cold. The work was hard. She persisted.")
	require.NoError(t, err)

	// Antecedent is three sentences back, past the look-back limit.
	assert.Contains(t, res.ResolvedText, "She persisted")
}

func TestRuleBasedClusters(t *testing.T) {
	r, err := NewResolver(DefaultConfig())
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(),
		"Marie Curie studied physics. She taught chemistry. She mentored students.")
	require.NoError(t, err)

	require.Len(t, res.Clusters, 1)
	assert.Equal(t, "Marie Curie", res.Clusters[0].MainMention.Text)
	assert.Len(t, res.Clusters[0].Mentions, 2)
}

func TestRuleBasedRepeatedPronounsKeepOffsets(t *testing.T) {
	r, err := NewResolver(DefaultConfig())
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(),
		"Ada Lovelace wrote the notes. She annotated them carefully and she signed each page.")
	require.NoError(t, err)

	assert.NotContains(t, res.ResolvedText, "She annotated")
	assert.NotContains(t, res.ResolvedText, "she signed")
	assert.Contains(t, res.ResolvedText, "Ada Lovelace annotated")
	assert.Contains(t, res.ResolvedText, "Ada Lovelace signed")
}

func TestLLMGuidedRewrite(t *testing.T) {
	client := &mockLLMClient{}
	client.On("Chat", mock.Anything, mock.Anything).Return(&llm.Response{
		Content: "Dan Shalev founded Acme Corp. Dan Shalev served as CEO.",
	}, nil)

	r, err := NewResolver(Config{Strategy: StrategyLLMGuided, MaxDistance: 3},
		WithLLMClient(client))
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(),
		"Dan Shalev founded Acme Corp. He served as CEO.")
	require.NoError(t, err)
	assert.Equal(t, "Dan Shalev founded Acme Corp. Dan Shalev served as CEO.", res.ResolvedText)
	assert.Empty(t, res.MentionMap, "whole-text rewrites report no mention pairs")
	assert.Empty(t, res.Clusters)
	client.AssertExpectations(t)
}
