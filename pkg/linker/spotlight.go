package linker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/go-textrdf/pkg/cache"
)

// annotationCacheTTL bounds how long raw remote responses are reused.
const annotationCacheTTL = time.Hour

// Annotator submits a passage to a remote annotation service and returns the
// entities it recognized.
type Annotator interface {
	Annotate(ctx context.Context, text string) ([]LinkedEntity, error)
}

// spotlightResponse mirrors the DBpedia Spotlight annotate payload.
type spotlightResponse struct {
	Resources []spotlightResource `json:"Resources"`
}

type spotlightResource struct {
	URI         string  `json:"@URI"`
	SurfaceForm string  `json:"@surfaceForm"`
	Types       string  `json:"@types"`
	Similarity  float64 `json:"@similarityScore,string"`
}

// SpotlightClient annotates passages through a DBpedia Spotlight endpoint.
// Responses are cached per (endpoint, passage), and a circuit breaker stops
// hammering an unhealthy service.
type SpotlightClient struct {
	endpoint   string
	confidence float64
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	cache      cache.Cache
	logger     *slog.Logger
}

// SpotlightOption configures a SpotlightClient.
type SpotlightOption func(*SpotlightClient)

// WithSpotlightCache enables response caching.
func WithSpotlightCache(c cache.Cache) SpotlightOption {
	return func(s *SpotlightClient) { s.cache = c }
}

// WithSpotlightHTTPClient replaces the HTTP client.
func WithSpotlightHTTPClient(c *http.Client) SpotlightOption {
	return func(s *SpotlightClient) { s.httpClient = c }
}

// WithSpotlightLogger sets the client's logger.
func WithSpotlightLogger(logger *slog.Logger) SpotlightOption {
	return func(s *SpotlightClient) { s.logger = logger }
}

// NewSpotlightClient creates a client for the given service base URL, for
// example "https://api.dbpedia-spotlight.org/en". Unless WithSpotlightCache
// supplies one, responses are cached in memory for an hour per
// (endpoint, passage).
func NewSpotlightClient(endpoint string, confidence float64, opts ...SpotlightOption) (*SpotlightClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("spotlight: endpoint is required")
	}

	s := &SpotlightClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		confidence: confidence,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cache == nil {
		c, err := cache.NewInMemoryCache()
		if err != nil {
			return nil, fmt.Errorf("spotlight: opening response cache: %w", err)
		}
		s.cache = c
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "spotlight",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return s, nil
}

// Annotate posts the passage to the annotate endpoint and returns every
// recognized entity. Cached responses are served without touching the
// service.
func (s *SpotlightClient) Annotate(ctx context.Context, text string) ([]LinkedEntity, error) {
	cacheKey := s.endpoint + "\x00" + text

	if s.cache != nil {
		if raw, err := s.cache.Get(cacheKey); err == nil {
			var cached []LinkedEntity
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.annotate(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("annotation service unavailable: %w", err)
		}
		return nil, err
	}

	entities := result.([]LinkedEntity)

	if s.cache != nil {
		if raw, err := json.Marshal(entities); err == nil {
			if err := s.cache.Set(cacheKey, raw, annotationCacheTTL); err != nil {
				s.logger.Warn("failed to cache annotation response", "error", err)
			}
		}
	}

	return entities, nil
}

func (s *SpotlightClient) annotate(ctx context.Context, text string) ([]LinkedEntity, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("confidence", strconv.FormatFloat(s.confidence, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.endpoint+"/annotate", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building annotation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("annotation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("annotation service returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("annotation service rejected request", "status", resp.StatusCode)
		return []LinkedEntity{}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading annotation response: %w", err)
	}

	var parsed spotlightResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing annotation response: %w", err)
	}

	entities := make([]LinkedEntity, 0, len(parsed.Resources))
	for _, r := range parsed.Resources {
		var types []string
		for _, t := range strings.Split(r.Types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
		entities = append(entities, LinkedEntity{
			SurfaceForm: r.SurfaceForm,
			URI:         r.URI,
			Types:       types,
			Confidence:  r.Similarity,
		})
	}
	return entities, nil
}
