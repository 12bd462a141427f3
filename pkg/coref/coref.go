// Package coref resolves pronouns to their antecedents before extraction, so
// "Dan Shalev founded Acme Corp. He served as CEO." yields one connected
// entity instead of a dangling "He".
package coref

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/go-textrdf/pkg/llm"
	"github.com/soundprediction/go-textrdf/pkg/prompts"
)

// Strategy selects how coreferences are resolved.
type Strategy string

const (
	// StrategyNone disables resolution; text passes through unchanged.
	StrategyNone Strategy = "none"

	// StrategyRuleBased resolves pronouns with lexical heuristics.
	StrategyRuleBased Strategy = "rule-based"

	// StrategyLLMGuided rewrites the text through the language model. The
	// rewrite is whole-text, so the result carries no clusters or mention
	// map; only the rule-based strategy reports pronoun -> antecedent pairs.
	StrategyLLMGuided Strategy = "llm-guided"
)

// ParseStrategy maps a config string to a Strategy. Unknown values fall back
// to rule-based.
func ParseStrategy(s string) Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "disabled":
		return StrategyNone
	case "llm-guided", "llm":
		return StrategyLLMGuided
	default:
		return StrategyRuleBased
	}
}

// Config controls the resolver.
type Config struct {
	Strategy Strategy

	// PreserveOriginal keeps the input text in the result.
	PreserveOriginal bool

	// MaxDistance is how many sentences back an antecedent may be.
	MaxDistance int

	// MinConfidence gates matches for strategies that score them.
	MinConfidence float64
}

// DefaultConfig returns the rule-based defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:         StrategyRuleBased,
		PreserveOriginal: true,
		MaxDistance:      3,
		MinConfidence:    0.7,
	}
}

// Mention is a single occurrence of an entity in the text.
type Mention struct {
	Text        string `json:"text"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	IsMain      bool   `json:"is_main"`
	SentenceIdx int    `json:"sentence_idx"`
}

// Cluster groups mentions that refer to the same entity.
type Cluster struct {
	ID          int       `json:"id"`
	MainMention Mention   `json:"main_mention"`
	Mentions    []Mention `json:"mentions"`
}

// Result is the outcome of resolving one text.
type Result struct {
	OriginalText string            `json:"original_text"`
	ResolvedText string            `json:"resolved_text"`
	Clusters     []Cluster         `json:"clusters"`
	MentionMap   map[string]string `json:"mention_map"`
}

// Resolver applies the configured coreference strategy. Unresolvable
// pronouns are always left untouched, never reported as errors.
type Resolver struct {
	config  Config
	client  llm.Client
	prompts prompts.Library
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLLMClient supplies the language-model client used by the llm-guided
// strategy.
func WithLLMClient(client llm.Client) Option {
	return func(r *Resolver) { r.client = client }
}

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a Resolver. The llm-guided strategy requires a client.
func NewResolver(config Config, opts ...Option) (*Resolver, error) {
	if config.MaxDistance <= 0 {
		config.MaxDistance = DefaultConfig().MaxDistance
	}
	r := &Resolver{
		config:  config,
		prompts: prompts.DefaultLibrary,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if config.Strategy == StrategyLLMGuided && r.client == nil {
		return nil, fmt.Errorf("coref: llm-guided strategy requires a language model client")
	}
	return r, nil
}

// Resolve rewrites pronouns in text according to the configured strategy.
func (r *Resolver) Resolve(ctx context.Context, text string) (*Result, error) {
	switch r.config.Strategy {
	case StrategyNone:
		return &Result{
			OriginalText: text,
			ResolvedText: text,
			MentionMap:   map[string]string{},
		}, nil
	case StrategyLLMGuided:
		return r.resolveLLMGuided(ctx, text)
	default:
		return r.resolveRuleBased(text), nil
	}
}

// sentence is a '.'-delimited segment with its absolute start offset.
type sentence struct {
	text  string
	start int
}

func splitSentences(text string) []sentence {
	var out []sentence
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == '.' {
			seg := text[start:i]
			if strings.TrimSpace(seg) != "" {
				out = append(out, sentence{text: seg, start: start})
			}
			start = i + 1
		}
	}
	return out
}

// token is a whitespace-delimited word with its absolute start offset.
type token struct {
	text  string
	start int
}

func tokenize(s sentence) []token {
	var out []token
	i := 0
	for i < len(s.text) {
		for i < len(s.text) && isSpace(s.text[i]) {
			i++
		}
		j := i
		for j < len(s.text) && !isSpace(s.text[j]) {
			j++
		}
		if j > i {
			out = append(out, token{text: s.text[i:j], start: s.start + i})
		}
		i = j
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// candidate is a capitalized span that may serve as an antecedent.
type candidate struct {
	text        string
	start       int
	sentenceIdx int
}

type replacement struct {
	start, end  int
	antecedent  string
	pronoun     string
	sentenceIdx int
}

func (r *Resolver) resolveRuleBased(text string) *Result {
	sentences := splitSentences(text)

	var candidates []candidate
	for idx, s := range sentences {
		toks := tokenize(s)
		i := 0
		for i < len(toks) {
			if !startsProperNoun(toks[i].text) {
				i++
				continue
			}
			j := i + 1
			for j < len(toks) && continuesProperNoun(toks[j].text) {
				j++
			}
			parts := make([]string, 0, j-i)
			for _, t := range toks[i:j] {
				parts = append(parts, strings.TrimRight(t.text, ".,;:!?"))
			}
			candidates = append(candidates, candidate{
				text:        strings.Join(parts, " "),
				start:       toks[i].start,
				sentenceIdx: idx,
			})
			i = j
		}
	}

	var replacements []replacement
	for idx, s := range sentences {
		for _, tok := range tokenize(s) {
			class, ok := classifyPronoun(tok.text)
			if !ok {
				continue
			}
			ante := nearestAntecedent(candidates, class, idx, tok.start, r.config.MaxDistance)
			if ante == nil {
				continue
			}
			bare := strings.TrimRight(tok.text, ".,;:!?")
			replacements = append(replacements, replacement{
				start:       tok.start,
				end:         tok.start + len(bare),
				antecedent:  ante.text,
				pronoun:     bare,
				sentenceIdx: idx,
			})
		}
	}

	resolved := text
	mentionMap := make(map[string]string, len(replacements))
	var clusters []Cluster

	// Apply in reverse so earlier offsets stay valid.
	for i := len(replacements) - 1; i >= 0; i-- {
		rep := replacements[i]
		resolved = resolved[:rep.start] + rep.antecedent + resolved[rep.end:]
	}

	for _, rep := range replacements {
		mentionMap[rep.pronoun] = rep.antecedent

		mention := Mention{
			Text:        rep.pronoun,
			Start:       rep.start,
			End:         rep.end,
			SentenceIdx: rep.sentenceIdx,
		}
		found := false
		for ci := range clusters {
			if clusters[ci].MainMention.Text == rep.antecedent {
				clusters[ci].Mentions = append(clusters[ci].Mentions, mention)
				found = true
				break
			}
		}
		if !found {
			clusters = append(clusters, Cluster{
				ID: len(clusters),
				MainMention: Mention{
					Text:        rep.antecedent,
					IsMain:      true,
					SentenceIdx: rep.sentenceIdx,
				},
				Mentions: []Mention{mention},
			})
		}
	}

	res := &Result{
		ResolvedText: resolved,
		Clusters:     clusters,
		MentionMap:   mentionMap,
	}
	if r.config.PreserveOriginal {
		res.OriginalText = text
	}
	return res
}

// nearestAntecedent picks the closest preceding candidate of a matching
// class within maxDistance sentences.
func nearestAntecedent(candidates []candidate, class pronounClass, sentIdx, pronounStart, maxDistance int) *candidate {
	for i := len(candidates) - 1; i >= 0; i-- {
		c := &candidates[i]
		if c.sentenceIdx > sentIdx || sentIdx-c.sentenceIdx > maxDistance {
			continue
		}
		if c.sentenceIdx == sentIdx && c.start >= pronounStart {
			continue
		}
		if matchesPronoun(c.text, class) {
			return c
		}
	}
	return nil
}

func (r *Resolver) resolveLLMGuided(ctx context.Context, text string) (*Result, error) {
	messages, err := r.prompts.Coref().Rewrite().Call(map[string]interface{}{
		"text": text,
	})
	if err != nil {
		return nil, fmt.Errorf("coref: building rewrite prompt: %w", err)
	}

	resp, err := r.client.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("coref: rewrite request failed: %w", err)
	}

	resolved := strings.TrimSpace(resp.Content)
	if resolved == "" {
		r.logger.Warn("coref rewrite returned empty text, keeping original")
		resolved = text
	}

	res := &Result{
		ResolvedText: resolved,
		MentionMap:   map[string]string{},
	}
	if r.config.PreserveOriginal {
		res.OriginalText = text
	}
	return res, nil
}

// determiners never start an antecedent span.
var determiners = map[string]bool{
	"The": true, "A": true, "This": true,
}

func startsProperNoun(word string) bool {
	word = strings.TrimRight(word, ".,;:!?")
	if len(word) < 2 || determiners[word] {
		return false
	}
	if _, isPronoun := classifyPronoun(word); isPronoun {
		return false
	}
	first := rune(word[0])
	second := rune(word[1])
	return first >= 'A' && first <= 'Z' && !(second >= 'A' && second <= 'Z')
}

func continuesProperNoun(word string) bool {
	word = strings.TrimRight(word, ",;:!?")
	if word == "" {
		return false
	}
	first := rune(word[0])
	if !(first >= 'A' && first <= 'Z') {
		return false
	}
	for _, c := range word[1:] {
		if c >= 'A' && c <= 'Z' {
			return false
		}
	}
	return true
}

type pronounClass int

const (
	masculine pronounClass = iota
	feminine
	neutral
	plural
)

func classifyPronoun(word string) (pronounClass, bool) {
	switch strings.ToLower(strings.TrimFunc(word, func(c rune) bool {
		return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z')
	})) {
	case "he", "him", "his", "himself":
		return masculine, true
	case "she", "her", "hers", "herself":
		return feminine, true
	case "it", "its", "itself":
		return neutral, true
	case "they", "them", "their", "theirs", "themselves":
		return plural, true
	}
	return 0, false
}

var orgSuffixes = []string{"Corp", "Inc", "LLC", "Ltd", "Company"}

func looksLikeOrganization(entity string) bool {
	for _, s := range orgSuffixes {
		if strings.Contains(entity, s) {
			return true
		}
	}
	return false
}

// matchesPronoun applies the class heuristics: personal pronouns want short
// person names, "it" wants an organization suffix, plural pronouns want a
// conjunction or plural surface form.
func matchesPronoun(entity string, class pronounClass) bool {
	switch class {
	case masculine, feminine:
		words := strings.Fields(entity)
		return len(words) <= 3 &&
			!strings.Contains(strings.ToLower(entity), " and ") &&
			!looksLikeOrganization(entity)
	case neutral:
		return looksLikeOrganization(entity)
	case plural:
		return strings.Contains(entity, " and ") || strings.HasSuffix(entity, "s")
	}
	return false
}
