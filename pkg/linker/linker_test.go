package linker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/go-textrdf/pkg/kb"
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

func localConfig() Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Strategy = StrategyLocal
	return cfg
}

func curieStore() kb.Store {
	return kb.NewMemoryStoreWith(
		kb.Entity{URI: "http://dbpedia.org/resource/Marie_Curie", Label: "Marie Curie", Types: []string{"Person"}},
		kb.Entity{URI: "http://dbpedia.org/resource/Pierre_Curie", Label: "Pierre Curie", Types: []string{"Person"}},
	)
}

func TestDisabledLinkerReturnsNothing(t *testing.T) {
	l, err := NewLinker(DefaultConfig())
	require.NoError(t, err)

	linked, err := l.LinkEntity(context.Background(), "some text", "Marie Curie", "")
	require.NoError(t, err)
	assert.Nil(t, linked)
}

func TestLocalStrategyRequiresStore(t *testing.T) {
	_, err := NewLinker(localConfig())
	assert.Error(t, err)
}

func TestLocalExactMatch(t *testing.T) {
	l, err := NewLinker(localConfig(), WithStore(curieStore()))
	require.NoError(t, err)

	linked, err := l.LinkEntity(context.Background(), "", "marie curie", "Person")
	require.NoError(t, err)
	require.NotNil(t, linked)
	assert.Equal(t, "http://dbpedia.org/resource/Marie_Curie", linked.URI)
	assert.Equal(t, ExactMatchConfidence, linked.Confidence)
}

func TestLocalFuzzyBelowThresholdExcluded(t *testing.T) {
	cfg := localConfig()
	cfg.FuzzyThreshold = 0.9
	store := kb.NewMemoryStoreWith(
		kb.Entity{URI: "http://example.org/curiosity", Label: "Curie Institute of Oncology Research"},
	)
	l, err := NewLinker(cfg, WithStore(store))
	require.NoError(t, err)

	linked, err := l.LinkEntity(context.Background(), "", "Curie", "")
	require.NoError(t, err)
	assert.Nil(t, linked)
}

func TestLocalFuzzyMatchScoresSimilarity(t *testing.T) {
	cfg := localConfig()
	cfg.FuzzyThreshold = 0.8
	l, err := NewLinker(cfg, WithStore(curieStore()))
	require.NoError(t, err)

	// One edit away from "Marie Curie".
	linked, err := l.LinkEntity(context.Background(), "", "Marie Curi", "")
	require.NoError(t, err)
	require.NotNil(t, linked)
	assert.Equal(t, "http://dbpedia.org/resource/Marie_Curie", linked.URI)
	assert.InDelta(t, similarity("Marie Curi", "Marie Curie"), linked.Confidence, 1e-9)
	assert.Less(t, linked.Confidence, ExactMatchConfidence)
}

func TestNoMatchReturnsNil(t *testing.T) {
	l, err := NewLinker(localConfig(), WithStore(curieStore()))
	require.NoError(t, err)

	linked, err := l.LinkEntity(context.Background(), "", "Nikola Tesla", "")
	require.NoError(t, err)
	assert.Nil(t, linked)
}

func TestDisambiguationNotInvokedBelowMinimum(t *testing.T) {
	client := &mockLLMClient{}

	cfg := localConfig()
	cfg.DisambiguationEnabled = true
	cfg.DisambiguationMinCandidates = 2
	store := kb.NewMemoryStoreWith(
		kb.Entity{URI: "http://dbpedia.org/resource/Marie_Curie", Label: "Marie Curie"},
	)
	l, err := NewLinker(cfg, WithStore(store), WithLLMClient(client))
	require.NoError(t, err)

	linked, err := l.LinkEntity(context.Background(), "", "Marie Curie", "")
	require.NoError(t, err)
	require.NotNil(t, linked)
	client.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestDisambiguationPicksCandidate(t *testing.T) {
	client := &mockLLMClient{}
	client.On("Chat", mock.Anything, mock.Anything).Return(&llm.Response{Content: "2"}, nil)

	cfg := localConfig()
	cfg.DisambiguationEnabled = true
	cfg.FuzzyEnabled = false
	store := kb.NewMemoryStoreWith(
		kb.Entity{URI: "http://example.org/a", Label: "Mercury"},
		kb.Entity{URI: "http://example.org/b", Label: "Mercury"},
	)
	l, err := NewLinker(cfg, WithStore(store), WithLLMClient(client))
	require.NoError(t, err)

	linked, err := l.LinkEntity(context.Background(),
		"Mercury is the closest planet to the Sun.", "Mercury", "Place")
	require.NoError(t, err)
	require.NotNil(t, linked)
	assert.Equal(t, "http://example.org/b", linked.URI)
	assert.Equal(t, ExactMatchConfidence, linked.Confidence)
	client.AssertExpectations(t)
}

func TestDisambiguationOutOfRangeFails(t *testing.T) {
	client := &mockLLMClient{}
	client.On("Chat", mock.Anything, mock.Anything).Return(&llm.Response{Content: "7"}, nil)

	cfg := localConfig()
	cfg.DisambiguationEnabled = true
	cfg.FuzzyEnabled = false
	store := kb.NewMemoryStoreWith(
		kb.Entity{URI: "http://example.org/a", Label: "Mercury"},
		kb.Entity{URI: "http://example.org/b", Label: "Mercury"},
	)
	l, err := NewLinker(cfg, WithStore(store), WithLLMClient(client))
	require.NoError(t, err)

	_, err = l.LinkEntity(context.Background(), "", "Mercury", "")
	assert.ErrorIs(t, err, ErrDisambiguation)
}

func TestDisambiguationUnparseableFails(t *testing.T) {
	client := &mockLLMClient{}
	client.On("Chat", mock.Anything, mock.Anything).Return(&llm.Response{Content: "the first one"}, nil)

	cfg := localConfig()
	cfg.DisambiguationEnabled = true
	cfg.FuzzyEnabled = false
	store := kb.NewMemoryStoreWith(
		kb.Entity{URI: "http://example.org/a", Label: "Mercury"},
		kb.Entity{URI: "http://example.org/b", Label: "Mercury"},
	)
	l, err := NewLinker(cfg, WithStore(store), WithLLMClient(client))
	require.NoError(t, err)

	_, err = l.LinkEntity(context.Background(), "", "Mercury", "")
	assert.ErrorIs(t, err, ErrDisambiguation)
}

func TestLinkEntitiesDegradesDisambiguationFailure(t *testing.T) {
	client := &mockLLMClient{}
	client.On("Chat", mock.Anything, mock.Anything).Return(&llm.Response{Content: "no idea"}, nil)

	cfg := localConfig()
	cfg.DisambiguationEnabled = true
	cfg.FuzzyEnabled = false
	store := kb.NewMemoryStoreWith(
		kb.Entity{URI: "http://example.org/a", Label: "Mercury"},
		kb.Entity{URI: "http://example.org/b", Label: "Mercury"},
		kb.Entity{URI: "http://dbpedia.org/resource/Marie_Curie", Label: "Marie Curie"},
	)
	l, err := NewLinker(cfg, WithStore(store), WithLLMClient(client))
	require.NoError(t, err)

	results, err := l.LinkEntities(context.Background(), "passage",
		[]string{"Mercury", "Marie Curie"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Nil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, "http://dbpedia.org/resource/Marie_Curie", results[1].URI)
}

func TestParseChoice(t *testing.T) {
	cases := []struct {
		reply string
		want  int
		ok    bool
	}{
		{"2", 2, true},
		{" 3.", 3, true},
		{"Candidate 1 is the best match", 1, true},
		{"none of them", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseChoice(tc.reply)
		assert.Equal(t, tc.ok, ok, "reply %q", tc.reply)
		if ok {
			assert.Equal(t, tc.want, got, "reply %q", tc.reply)
		}
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("Marie Curie", "marie curie"))
	assert.InDelta(t, 1-1.0/11, similarity("Marie Curi", "Marie Curie"), 1e-9)
	assert.Less(t, similarity("Curie", "Curiosity Rover"), 0.5)
}
