package textrdf

import (
	"fmt"
	"log/slog"

	textrdf "github.com/soundprediction/go-textrdf"
	"github.com/soundprediction/go-textrdf/pkg/cache"
	"github.com/soundprediction/go-textrdf/pkg/config"
	"github.com/soundprediction/go-textrdf/pkg/coref"
	"github.com/soundprediction/go-textrdf/pkg/cost"
	"github.com/soundprediction/go-textrdf/pkg/kb"
	"github.com/soundprediction/go-textrdf/pkg/linker"
	"github.com/soundprediction/go-textrdf/pkg/llm"
	"github.com/soundprediction/go-textrdf/pkg/logger"
)

func buildLogger(cfg *config.Config) *slog.Logger {
	return logger.NewDefaultLogger(logger.ParseLevel(cfg.Log.Level))
}

func buildLLMClient(cfg *config.Config) (llm.Client, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required (set OPENAI_API_KEY)")
	}
	temperature := cfg.LLM.Temperature
	maxTokens := cfg.LLM.MaxTokens
	return llm.NewOpenAIClient(cfg.LLM.APIKey, llm.Config{
		Model:       cfg.LLM.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		BaseURL:     cfg.LLM.BaseURL,
	})
}

func buildStore(cfg *config.Config) (kb.Store, error) {
	switch cfg.KnowledgeStore.Driver {
	case "neo4j":
		return kb.NewNeo4jStore(
			cfg.KnowledgeStore.URI,
			cfg.KnowledgeStore.Username,
			cfg.KnowledgeStore.Password,
			cfg.KnowledgeStore.Database,
		)
	default:
		return kb.NewMemoryStore(), nil
	}
}

func extractorConfig(cfg *config.Config) textrdf.Config {
	ec := textrdf.DefaultConfig()

	if cfg.Extraction.MaxWindowSize > 0 {
		ec.MaxWindowSize = cfg.Extraction.MaxWindowSize
	}
	if cfg.Extraction.OverlapSize > 0 {
		ec.OverlapSize = cfg.Extraction.OverlapSize
	}
	if cfg.Extraction.ChunkThreshold > 0 {
		ec.ChunkThreshold = cfg.Extraction.ChunkThreshold
	}
	if cfg.Extraction.MaxRetries > 0 {
		ec.MaxRetries = cfg.Extraction.MaxRetries
	}
	if cfg.Extraction.SystemPrompt != "" {
		ec.SystemPrompt = cfg.Extraction.SystemPrompt
	}
	ec.ProvenanceTracking = cfg.Extraction.Provenance

	ec.Coref.Strategy = coref.ParseStrategy(cfg.Coref.Strategy)
	ec.Coref.PreserveOriginal = cfg.Coref.PreserveOriginal
	if cfg.Coref.MaxDistance > 0 {
		ec.Coref.MaxDistance = cfg.Coref.MaxDistance
	}
	if cfg.Coref.MinConfidence > 0 {
		ec.Coref.MinConfidence = cfg.Coref.MinConfidence
	}

	ec.Linking.Enabled = cfg.Linking.Enabled
	ec.Linking.Strategy = linker.ParseStrategy(cfg.Linking.Strategy)
	ec.Linking.ServiceURL = cfg.Linking.ServiceURL
	if cfg.Linking.ConfidenceThreshold > 0 {
		ec.Linking.ConfidenceThreshold = cfg.Linking.ConfidenceThreshold
	}
	ec.Linking.FuzzyEnabled = cfg.Linking.FuzzyEnabled
	if cfg.Linking.FuzzyThreshold > 0 {
		ec.Linking.FuzzyThreshold = cfg.Linking.FuzzyThreshold
	}
	if cfg.Linking.MaxCandidates > 0 {
		ec.Linking.MaxCandidates = cfg.Linking.MaxCandidates
	}
	ec.Linking.DisambiguationEnabled = cfg.Linking.DisambiguationEnabled
	if cfg.Linking.DisambiguationMinCandidates > 0 {
		ec.Linking.DisambiguationMinCandidates = cfg.Linking.DisambiguationMinCandidates
	}

	return ec
}

func buildExtractor(cfg *config.Config, log *slog.Logger) (*textrdf.Extractor, *cost.Tracker, error) {
	client, err := buildLLMClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	tracker := cost.NewTracker(cfg.LLM.Model, nil)
	opts := []textrdf.Option{
		textrdf.WithLogger(log),
		textrdf.WithUsageTracker(tracker),
	}
	if cfg.Linking.Enabled && cfg.Linking.Strategy == "local" {
		store, err := buildStore(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("opening knowledge store: %w", err)
		}
		opts = append(opts, textrdf.WithKnowledgeStore(store))
	}
	if cfg.Linking.Enabled && cfg.Linking.Strategy == "remote" && cfg.Cache.Path != "" {
		// A cache path makes annotation responses survive across runs.
		// Without one the annotator keeps its default in-memory cache.
		annotationCache, err := cache.NewBadgerCache(cfg.Cache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening annotation cache: %w", err)
		}
		annotator, err := linker.NewSpotlightClient(
			cfg.Linking.ServiceURL, cfg.Linking.ConfidenceThreshold,
			linker.WithSpotlightCache(annotationCache),
			linker.WithSpotlightLogger(log),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("building annotation client: %w", err)
		}
		opts = append(opts, textrdf.WithAnnotator(annotator))
	}

	extractor, err := textrdf.NewExtractor(client, extractorConfig(cfg), opts...)
	if err != nil {
		return nil, nil, err
	}
	return extractor, tracker, nil
}
