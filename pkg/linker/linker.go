// Package linker resolves surface-form entity names to canonical URIs, either
// against a local knowledge store or through a remote annotation service.
package linker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/soundprediction/go-textrdf/pkg/kb"
	"github.com/soundprediction/go-textrdf/pkg/llm"
	"github.com/soundprediction/go-textrdf/pkg/prompts"
)

// ErrDisambiguation reports that the forced-choice reply could not select a
// candidate. It fails only the lookup that triggered it.
var ErrDisambiguation = errors.New("disambiguation failed")

// Confidence assigned by match kind.
const (
	ExactMatchConfidence    = 0.95
	ContainsMatchConfidence = 0.7
)

// Strategy selects the linking backend.
type Strategy string

const (
	// StrategyNone disables linking.
	StrategyNone Strategy = "none"

	// StrategyLocal queries the local knowledge store.
	StrategyLocal Strategy = "local"

	// StrategyRemote annotates the passage through a remote service.
	StrategyRemote Strategy = "remote"
)

// ParseStrategy maps a config string to a Strategy. Unknown values disable
// linking.
func ParseStrategy(s string) Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return StrategyLocal
	case "remote", "spotlight", "dbpedia-spotlight":
		return StrategyRemote
	default:
		return StrategyNone
	}
}

// LinkedEntity is a resolved entity reference.
type LinkedEntity struct {
	// SurfaceForm is the text the entity appeared as.
	SurfaceForm string `json:"surface_form"`

	// URI is the canonical identifier.
	URI string `json:"uri"`

	// Types are the entity's type names or URIs.
	Types []string `json:"types,omitempty"`

	// Confidence is the match score in [0,1].
	Confidence float64 `json:"confidence"`
}

// Config controls linking behavior.
type Config struct {
	// Enabled turns linking on. When false every lookup returns nothing.
	Enabled bool

	// Strategy selects the backend.
	Strategy Strategy

	// ConfidenceThreshold drops candidates scoring below it.
	ConfidenceThreshold float64

	// FuzzyEnabled scores substring candidates by string similarity.
	FuzzyEnabled bool

	// FuzzyThreshold drops fuzzy candidates scoring below it.
	FuzzyThreshold float64

	// MaxCandidates bounds store lookups.
	MaxCandidates int

	// DisambiguationEnabled submits ambiguous candidate sets to the
	// language model for a forced choice.
	DisambiguationEnabled bool

	// DisambiguationMinCandidates is the smallest candidate count that
	// triggers disambiguation.
	DisambiguationMinCandidates int

	// ServiceURL is the remote annotation endpoint.
	ServiceURL string
}

// DefaultConfig returns a disabled linker configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:                     false,
		Strategy:                    StrategyNone,
		ConfidenceThreshold:         0.5,
		FuzzyEnabled:                true,
		FuzzyThreshold:              0.8,
		MaxCandidates:               10,
		DisambiguationEnabled:       false,
		DisambiguationMinCandidates: 2,
		ServiceURL:                  "https://api.dbpedia-spotlight.org/en",
	}
}

// Linker resolves entity names according to its configured strategy.
type Linker struct {
	config    Config
	store     kb.Store
	annotator Annotator
	client    llm.Client
	prompts   prompts.Library
	logger    *slog.Logger
}

// Option configures a Linker.
type Option func(*Linker)

// WithStore supplies the knowledge store for the local strategy.
func WithStore(store kb.Store) Option {
	return func(l *Linker) { l.store = store }
}

// WithAnnotator supplies the remote annotation client.
func WithAnnotator(a Annotator) Option {
	return func(l *Linker) { l.annotator = a }
}

// WithLLMClient supplies the language-model client used for disambiguation.
func WithLLMClient(client llm.Client) Option {
	return func(l *Linker) { l.client = client }
}

// WithLogger sets the linker's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Linker) { l.logger = logger }
}

// NewLinker creates a Linker. The local strategy requires a store; the
// remote strategy builds a SpotlightClient from ServiceURL unless an
// annotator is supplied.
func NewLinker(config Config, opts ...Option) (*Linker, error) {
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = DefaultConfig().MaxCandidates
	}
	if config.DisambiguationMinCandidates <= 0 {
		config.DisambiguationMinCandidates = DefaultConfig().DisambiguationMinCandidates
	}

	l := &Linker{
		config:  config,
		prompts: prompts.DefaultLibrary,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if !config.Enabled {
		return l, nil
	}

	switch config.Strategy {
	case StrategyLocal:
		if l.store == nil {
			return nil, fmt.Errorf("linker: local strategy requires a knowledge store")
		}
		if config.DisambiguationEnabled && l.client == nil {
			return nil, fmt.Errorf("linker: disambiguation requires a language model client")
		}
	case StrategyRemote:
		if l.annotator == nil {
			annotator, err := NewSpotlightClient(config.ServiceURL, config.ConfidenceThreshold,
				WithSpotlightLogger(l.logger))
			if err != nil {
				return nil, fmt.Errorf("linker: %w", err)
			}
			l.annotator = annotator
		}
	}

	return l, nil
}

// LinkEntity resolves one surface form. The passage provides context for the
// remote strategy and for disambiguation; typeHint may be empty. A nil
// result with nil error means no link was found.
func (l *Linker) LinkEntity(ctx context.Context, passage, name, typeHint string) (*LinkedEntity, error) {
	if !l.config.Enabled || l.config.Strategy == StrategyNone {
		return nil, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	switch l.config.Strategy {
	case StrategyLocal:
		return l.linkLocal(ctx, passage, name, typeHint)
	case StrategyRemote:
		return l.linkRemote(ctx, passage, name)
	}
	return nil, nil
}

// LinkEntities resolves names in order. A disambiguation failure degrades to
// a nil entry for that name; store and network errors fail the whole batch.
func (l *Linker) LinkEntities(ctx context.Context, passage string, names []string) ([]*LinkedEntity, error) {
	results := make([]*LinkedEntity, len(names))
	for i, name := range names {
		linked, err := l.LinkEntity(ctx, passage, name, "")
		if err != nil {
			if errors.Is(err, ErrDisambiguation) {
				l.logger.Warn("disambiguation failed, leaving entity unlinked",
					"entity", name, "error", err)
				continue
			}
			return nil, fmt.Errorf("linking %q: %w", name, err)
		}
		results[i] = linked
	}
	return results, nil
}

func (l *Linker) linkLocal(ctx context.Context, passage, name, typeHint string) (*LinkedEntity, error) {
	exact, err := l.store.Lookup(ctx, kb.Query{Label: name, Limit: l.config.MaxCandidates})
	if err != nil {
		return nil, fmt.Errorf("knowledge store query: %w", err)
	}

	var candidates []LinkedEntity
	for _, e := range exact {
		candidates = append(candidates, LinkedEntity{
			SurfaceForm: e.Label,
			URI:         e.URI,
			Types:       e.Types,
			Confidence:  ExactMatchConfidence,
		})
	}

	if l.config.FuzzyEnabled || len(candidates) == 0 {
		broad, err := l.store.Lookup(ctx, kb.Query{
			Label:     name,
			Substring: true,
			Limit:     l.config.MaxCandidates,
		})
		if err != nil {
			return nil, fmt.Errorf("knowledge store query: %w", err)
		}
		for _, e := range broad {
			if strings.EqualFold(e.Label, name) {
				continue
			}
			score := ContainsMatchConfidence
			if l.config.FuzzyEnabled {
				score = similarity(name, e.Label)
				if score < l.config.FuzzyThreshold {
					continue
				}
			}
			candidates = append(candidates, LinkedEntity{
				SurfaceForm: e.Label,
				URI:         e.URI,
				Types:       e.Types,
				Confidence:  score,
			})
		}
	}

	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Confidence >= l.config.ConfidenceThreshold {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Confidence > filtered[j].Confidence
	})

	if l.config.DisambiguationEnabled && len(filtered) >= l.config.DisambiguationMinCandidates {
		return l.disambiguate(ctx, passage, name, typeHint, filtered)
	}

	best := filtered[0]
	return &best, nil
}

func (l *Linker) linkRemote(ctx context.Context, passage, name string) (*LinkedEntity, error) {
	annotations, err := l.annotator.Annotate(ctx, passage)
	if err != nil {
		return nil, err
	}

	for _, a := range annotations {
		if strings.EqualFold(a.SurfaceForm, name) && a.Confidence >= l.config.ConfidenceThreshold {
			linked := a
			return &linked, nil
		}
	}
	return nil, nil
}

// disambiguate asks the model to pick one candidate by number. The chosen
// candidate keeps its original confidence.
func (l *Linker) disambiguate(ctx context.Context, passage, name, typeHint string, candidates []LinkedEntity) (*LinkedEntity, error) {
	promptCandidates := make([]prompts.Candidate, len(candidates))
	for i, c := range candidates {
		promptCandidates[i] = prompts.Candidate{
			Label: c.SurfaceForm,
			URI:   c.URI,
			Types: c.Types,
		}
	}

	messages, err := l.prompts.Disambiguate().Choose().Call(map[string]interface{}{
		"entity_name": name,
		"passage":     passage,
		"type_hint":   typeHint,
		"candidates":  promptCandidates,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: building prompt: %v", ErrDisambiguation, err)
	}

	resp, err := l.client.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisambiguation, err)
	}

	idx, ok := parseChoice(resp.Content)
	if !ok {
		return nil, fmt.Errorf("%w: unparseable reply %q", ErrDisambiguation, resp.Content)
	}
	if idx < 1 || idx > len(candidates) {
		return nil, fmt.Errorf("%w: choice %d out of range [1,%d]", ErrDisambiguation, idx, len(candidates))
	}

	chosen := candidates[idx-1]
	return &chosen, nil
}

// parseChoice extracts the first integer from a reply.
func parseChoice(reply string) (int, bool) {
	i := 0
	for i < len(reply) && (reply[i] < '0' || reply[i] > '9') {
		i++
	}
	if i == len(reply) {
		return 0, false
	}
	n := 0
	for i < len(reply) && reply[i] >= '0' && reply[i] <= '9' {
		n = n*10 + int(reply[i]-'0')
		i++
	}
	return n, true
}

// similarity is a normalized Levenshtein score in [0,1] over lowercased
// input.
func similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if n := len([]rune(b)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}
