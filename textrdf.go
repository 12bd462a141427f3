// Package textrdf extracts schema.org JSON-LD knowledge graphs from natural
// language text, keeping entity identities consistent across the windows of
// long documents.
package textrdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/soundprediction/go-textrdf/pkg/chunker"
	"github.com/soundprediction/go-textrdf/pkg/coref"
	"github.com/soundprediction/go-textrdf/pkg/cost"
	"github.com/soundprediction/go-textrdf/pkg/kb"
	"github.com/soundprediction/go-textrdf/pkg/linker"
	"github.com/soundprediction/go-textrdf/pkg/llm"
	"github.com/soundprediction/go-textrdf/pkg/prompts"
	"github.com/soundprediction/go-textrdf/pkg/registry"
	"github.com/soundprediction/go-textrdf/pkg/validation"
)

// Config holds the extraction pipeline configuration.
type Config struct {
	// MaxWindowSize is the largest window the chunker produces.
	MaxWindowSize int

	// OverlapSize is the shared region between consecutive windows.
	OverlapSize int

	// ChunkThreshold is the document length below which extraction runs as
	// a single call.
	ChunkThreshold int

	// MaxRetries bounds the validation-feedback retry loop.
	MaxRetries int

	// SystemPrompt overrides the default extraction instructions.
	SystemPrompt string

	// ProvenanceTracking attaches window and span metadata to results.
	ProvenanceTracking bool

	// Coref configures coreference resolution.
	Coref coref.Config

	// Linking configures entity linking.
	Linking linker.Config
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MaxWindowSize:  chunker.DefaultMaxWindowSize,
		OverlapSize:    chunker.DefaultOverlapSize,
		ChunkThreshold: chunker.DefaultMaxWindowSize,
		MaxRetries:     2,
		Coref:          coref.DefaultConfig(),
		Linking:        linker.DefaultConfig(),
	}
}

// Extractor runs the extraction pipeline: chunking, coreference resolution,
// window-at-a-time extraction with registry context, entity linking, and
// merging.
type Extractor struct {
	client    llm.Client
	config    Config
	chunker   *chunker.Chunker
	resolver  *coref.Resolver
	linker    *linker.Linker
	prompts   prompts.Library
	validator *validation.Validator
	usage     *cost.Tracker
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*extractorDeps)

type extractorDeps struct {
	store     kb.Store
	annotator linker.Annotator
	validator *validation.Validator
	usage     *cost.Tracker
	logger    *slog.Logger
}

// WithKnowledgeStore supplies the store used by local entity linking.
func WithKnowledgeStore(store kb.Store) Option {
	return func(d *extractorDeps) { d.store = store }
}

// WithAnnotator supplies the remote annotation client used by remote entity
// linking.
func WithAnnotator(a linker.Annotator) Option {
	return func(d *extractorDeps) { d.annotator = a }
}

// WithValidator replaces the default schema.org validator.
func WithValidator(v *validation.Validator) Option {
	return func(d *extractorDeps) { d.validator = v }
}

// WithUsageTracker accumulates token usage and estimated spend across every
// model call the extractor makes.
func WithUsageTracker(t *cost.Tracker) Option {
	return func(d *extractorDeps) { d.usage = t }
}

// WithLogger sets the extractor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *extractorDeps) { d.logger = logger }
}

// NewExtractor creates an Extractor backed by the given language model
// client.
func NewExtractor(client llm.Client, config Config, opts ...Option) (*Extractor, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: language model client is required", ErrConfiguration)
	}
	if config.MaxWindowSize <= 0 {
		config.MaxWindowSize = chunker.DefaultMaxWindowSize
	}
	if config.ChunkThreshold <= 0 {
		config.ChunkThreshold = config.MaxWindowSize
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	deps := &extractorDeps{
		validator: validation.NewDefault(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(deps)
	}

	ch, err := chunker.New(config.MaxWindowSize, config.OverlapSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	resolver, err := coref.NewResolver(config.Coref,
		coref.WithLLMClient(client), coref.WithLogger(deps.logger))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	linkerOpts := []linker.Option{
		linker.WithLLMClient(client),
		linker.WithLogger(deps.logger),
	}
	if deps.store != nil {
		linkerOpts = append(linkerOpts, linker.WithStore(deps.store))
	}
	if deps.annotator != nil {
		linkerOpts = append(linkerOpts, linker.WithAnnotator(deps.annotator))
	}
	lk, err := linker.NewLinker(config.Linking, linkerOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return &Extractor{
		client:    client,
		config:    config,
		chunker:   ch,
		resolver:  resolver,
		linker:    lk,
		prompts:   prompts.DefaultLibrary,
		validator: deps.validator,
		usage:     deps.usage,
		logger:    deps.logger,
	}, nil
}

// Extract runs a single-window extraction over text, with coreference
// resolution first and the validation-feedback retry loop around the model
// call.
func (e *Extractor) Extract(ctx context.Context, text string) (*Document, error) {
	resolved := e.resolveText(ctx, text)

	doc, err := e.extractWithRetry(ctx, resolved, "")
	if err != nil {
		return nil, err
	}

	if err := e.linkDocument(ctx, doc, resolved); err != nil {
		e.logger.Warn("entity linking failed, continuing without URIs", "error", err)
	}

	if e.config.ProvenanceTracking {
		doc.Provenance = &Provenance{
			RunID:      uuid.New().String(),
			WindowID:   0,
			SpanStart:  0,
			SpanEnd:    len(text),
			Method:     "llm",
			SourceText: resolved,
		}
	}
	return doc, nil
}

// ExtractFromDocument extracts a merged knowledge graph from a document of
// any length. Documents below the chunk threshold behave exactly like
// Extract; longer documents are processed window by window, sequentially,
// with a per-run entity registry carrying context forward.
func (e *Extractor) ExtractFromDocument(ctx context.Context, text string) (*Document, error) {
	return e.ExtractFromDocumentWithRegistry(ctx, text, registry.New())
}

// ExtractFromDocumentWithRegistry is ExtractFromDocument with a
// caller-supplied registry, left populated with the run's discovered
// entities afterwards. The registry must not be shared across concurrent
// runs.
func (e *Extractor) ExtractFromDocumentWithRegistry(ctx context.Context, text string, reg *registry.Registry) (*Document, error) {
	if len(text) < e.config.ChunkThreshold {
		return e.Extract(ctx, text)
	}

	windows := e.chunker.Chunk(text)
	runID := uuid.New().String()

	e.logger.Info("chunking document",
		"run_id", runID, "length", len(text), "windows", len(windows))

	var docs []*Document
	var lastErr error

	for i := range windows {
		w := &windows[i]
		windowText := w.Text
		if res, err := e.resolver.Resolve(ctx, w.Text); err != nil {
			e.logger.Warn("coreference resolution failed, using raw window text",
				"window", w.ID, "error", err)
		} else {
			windowText = res.ResolvedText
			for pronoun, entity := range res.MentionMap {
				reg.AddAlias(entity, pronoun)
			}
		}

		doc, err := e.extractWithRetry(ctx, windowText, reg.ContextSummary())
		if err != nil {
			e.logger.Warn("window extraction failed",
				"window", w.ID, "error", err)
			lastErr = err
			continue
		}

		w.MentionedEntities = doc.EntityNames()
		e.logger.Debug("window extracted",
			"window", w.ID, "entities", len(w.MentionedEntities))

		if err := e.linkDocument(ctx, doc, windowText); err != nil {
			e.logger.Warn("window entity linking failed, continuing without URIs",
				"window", w.ID, "error", err)
		}

		if e.config.ProvenanceTracking {
			doc.Provenance = &Provenance{
				RunID:      runID,
				WindowID:   w.ID,
				SpanStart:  w.StartOffset,
				SpanEnd:    w.EndOffset,
				Method:     "llm",
				SourceText: windowText,
			}
		}

		e.updateRegistry(reg, doc, w)
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no windows produced")
		}
		return nil, fmt.Errorf("%w: %v", ErrAllWindowsFailed, lastErr)
	}

	merged, err := Merge(docs)
	if err != nil {
		return nil, err
	}
	e.logger.Info("merged window results",
		"run_id", runID, "windows", len(windows), "successful", len(docs),
		"entities", reg.EntityCount())
	return merged, nil
}

// resolveText applies coreference resolution, falling back to the raw text
// when the resolver fails.
func (e *Extractor) resolveText(ctx context.Context, text string) string {
	res, err := e.resolver.Resolve(ctx, text)
	if err != nil {
		e.logger.Warn("coreference resolution failed, using original text", "error", err)
		return text
	}
	return res.ResolvedText
}

// extractWithRetry drives the bounded retry loop: extract, validate, feed
// violations back, repeat. The conversation accumulates across attempts so
// the model sees its previous output and the correction request.
func (e *Extractor) extractWithRetry(ctx context.Context, text, contextSummary string) (*Document, error) {
	conversation, err := e.prompts.Extract().Window().Call(map[string]interface{}{
		"text":            text,
		"system_prompt":   e.config.SystemPrompt,
		"context_summary": contextSummary,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: building extraction prompt: %v", ErrConfiguration, err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			correction, err := e.prompts.Extract().Correction().Call(map[string]interface{}{
				"text":     text,
				"feedback": feedbackFor(lastErr),
			})
			if err != nil {
				return nil, fmt.Errorf("%w: building correction prompt: %v", ErrConfiguration, err)
			}
			conversation = append(conversation, correction...)
		}

		resp, err := e.client.Chat(ctx, conversation)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrService, err)
		}
		if e.usage != nil && resp.TokensUsed != nil {
			e.usage.Record(resp.TokensUsed.PromptTokens, resp.TokensUsed.CompletionTokens)
		}
		if strings.TrimSpace(resp.Content) == "" {
			return nil, fmt.Errorf("%w: empty response from language model", ErrService)
		}
		conversation = append(conversation, llm.NewAssistantMessage(resp.Content))

		doc, err := FromJSON(ExtractJSON(resp.Content))
		if err != nil {
			lastErr = err
			e.logger.Debug("extraction attempt produced unparseable output",
				"attempt", attempt, "error", err)
			continue
		}

		if res := e.validator.Validate(doc.Data); !res.Valid {
			lastErr = fmt.Errorf("%w: %s", ErrValidation, validation.FeedbackMessage(res))
			e.logger.Debug("extraction attempt failed validation",
				"attempt", attempt, "violations", len(res.Violations))
			continue
		}

		return doc, nil
	}

	return nil, fmt.Errorf("extraction failed after %d attempts: %w",
		e.config.MaxRetries+1, lastErr)
}

// feedbackFor renders the previous attempt's failure as correction guidance.
func feedbackFor(err error) string {
	switch {
	case err == nil:
		return "Unknown error"
	case errors.Is(err, ErrParse):
		return fmt.Sprintf("JSON Parsing Error: %v\n\nPlease ensure:\n- Valid JSON syntax (proper quotes, commas, brackets)\n- No trailing commas\n- Escaped special characters in strings", err)
	case errors.Is(err, ErrValidation):
		return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	default:
		return fmt.Sprintf("Extraction Error: %v\n\nPlease try again with valid JSON-LD.", err)
	}
}

// linkDocument resolves every named entity in the document and writes the
// URIs back as @id values.
func (e *Extractor) linkDocument(ctx context.Context, doc *Document, passage string) error {
	if !e.config.Linking.Enabled {
		return nil
	}

	names := doc.EntityNames()
	if len(names) == 0 {
		return nil
	}

	linked, err := e.linker.LinkEntities(ctx, passage, names)
	if err != nil {
		return err
	}

	for i, name := range names {
		if linked[i] != nil {
			doc.SetURI(name, linked[i].URI)
		}
	}
	return nil
}

// updateRegistry records the window's primary entity so later windows see it
// in their context summary.
func (e *Extractor) updateRegistry(reg *registry.Registry, doc *Document, w *chunker.Window) {
	name := doc.Name()
	if name == "" {
		return
	}
	reg.AddEntity(name, doc.Type(), w.StartOffset, w.ID)
	if id := doc.ID(); id != "" {
		reg.AddProperty(name, "@id", id)
		reg.SetURI(name, id)
	}
}
