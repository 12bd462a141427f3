// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// LLM configuration
	LLM LLMConfig `mapstructure:"llm"`

	// Extraction pipeline configuration
	Extraction ExtractionConfig `mapstructure:"extraction"`

	// Coreference resolution configuration
	Coref CorefConfig `mapstructure:"coref"`

	// Entity linking configuration
	Linking LinkingConfig `mapstructure:"linking"`

	// Knowledge store configuration
	KnowledgeStore KnowledgeStoreConfig `mapstructure:"knowledge_store"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// LLMConfig holds LLM configuration
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // openai or compatible
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ExtractionConfig holds chunking and retry configuration
type ExtractionConfig struct {
	MaxWindowSize  int    `mapstructure:"max_window_size"`
	OverlapSize    int    `mapstructure:"overlap_size"`
	ChunkThreshold int    `mapstructure:"chunk_threshold"`
	MaxRetries     int    `mapstructure:"max_retries"`
	SystemPrompt   string `mapstructure:"system_prompt"`
	Provenance     bool   `mapstructure:"provenance"`
}

// CorefConfig holds coreference resolution configuration
type CorefConfig struct {
	Strategy         string  `mapstructure:"strategy"` // none, rule-based, llm-guided
	PreserveOriginal bool    `mapstructure:"preserve_original"`
	MaxDistance      int     `mapstructure:"max_distance"`
	MinConfidence    float64 `mapstructure:"min_confidence"`
}

// LinkingConfig holds entity linking configuration
type LinkingConfig struct {
	Enabled                     bool    `mapstructure:"enabled"`
	Strategy                    string  `mapstructure:"strategy"` // none, local, remote
	ServiceURL                  string  `mapstructure:"service_url"`
	ConfidenceThreshold         float64 `mapstructure:"confidence_threshold"`
	FuzzyEnabled                bool    `mapstructure:"fuzzy_enabled"`
	FuzzyThreshold              float64 `mapstructure:"fuzzy_threshold"`
	MaxCandidates               int     `mapstructure:"max_candidates"`
	DisambiguationEnabled       bool    `mapstructure:"disambiguation_enabled"`
	DisambiguationMinCandidates int     `mapstructure:"disambiguation_min_candidates"`
}

// KnowledgeStoreConfig holds the local knowledge base configuration
type KnowledgeStoreConfig struct {
	Driver   string `mapstructure:"driver"` // memory, neo4j
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// CacheConfig holds the annotation cache configuration
type CacheConfig struct {
	Path string `mapstructure:"path"` // empty means in-memory
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// LLM defaults
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.max_tokens", 2048)

	// Extraction defaults
	viper.SetDefault("extraction.max_window_size", 3500)
	viper.SetDefault("extraction.overlap_size", 400)
	viper.SetDefault("extraction.chunk_threshold", 3500)
	viper.SetDefault("extraction.max_retries", 2)

	// Coref defaults
	viper.SetDefault("coref.strategy", "rule-based")
	viper.SetDefault("coref.preserve_original", true)
	viper.SetDefault("coref.max_distance", 3)
	viper.SetDefault("coref.min_confidence", 0.7)

	// Linking defaults
	viper.SetDefault("linking.enabled", false)
	viper.SetDefault("linking.strategy", "none")
	viper.SetDefault("linking.service_url", "https://api.dbpedia-spotlight.org/en")
	viper.SetDefault("linking.confidence_threshold", 0.5)
	viper.SetDefault("linking.fuzzy_enabled", true)
	viper.SetDefault("linking.fuzzy_threshold", 0.8)
	viper.SetDefault("linking.max_candidates", 10)
	viper.SetDefault("linking.disambiguation_enabled", false)
	viper.SetDefault("linking.disambiguation_min_candidates", 2)

	// Knowledge store defaults
	viper.SetDefault("knowledge_store.driver", "memory")
	viper.SetDefault("knowledge_store.uri", "bolt://localhost:7687")
	viper.SetDefault("knowledge_store.username", "neo4j")
	viper.SetDefault("knowledge_store.password", "password")
	viper.SetDefault("knowledge_store.database", "neo4j")
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}

	if strategy := os.Getenv("COREF_STRATEGY"); strategy != "" {
		config.Coref.Strategy = strategy
	}
	if dist := os.Getenv("COREF_MAX_DISTANCE"); dist != "" {
		if n, err := strconv.Atoi(dist); err == nil {
			config.Coref.MaxDistance = n
		}
	}

	if enabled := os.Getenv("ENTITY_LINKING_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Linking.Enabled = b
		}
	}
	if strategy := os.Getenv("ENTITY_LINKING_STRATEGY"); strategy != "" {
		config.Linking.Strategy = strategy
	}
	if url := os.Getenv("ENTITY_LINKING_SERVICE_URL"); url != "" {
		config.Linking.ServiceURL = url
	}

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.KnowledgeStore.Driver = "neo4j"
		config.KnowledgeStore.URI = uri
	}
	if user := os.Getenv("NEO4J_USERNAME"); user != "" {
		config.KnowledgeStore.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.KnowledgeStore.Password = pass
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			config.Server.Port = n
		}
	}
}
