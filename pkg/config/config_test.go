package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)

	assert.Equal(t, 3500, cfg.Extraction.MaxWindowSize)
	assert.Equal(t, 400, cfg.Extraction.OverlapSize)
	assert.Equal(t, 2, cfg.Extraction.MaxRetries)

	assert.Equal(t, "rule-based", cfg.Coref.Strategy)
	assert.Equal(t, 3, cfg.Coref.MaxDistance)

	assert.False(t, cfg.Linking.Enabled)
	assert.Equal(t, "none", cfg.Linking.Strategy)
	assert.Equal(t, 0.5, cfg.Linking.ConfidenceThreshold)

	assert.Equal(t, "memory", cfg.KnowledgeStore.Driver)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("COREF_STRATEGY", "none")
	t.Setenv("COREF_MAX_DISTANCE", "5")
	t.Setenv("ENTITY_LINKING_ENABLED", "true")
	t.Setenv("ENTITY_LINKING_STRATEGY", "local")
	t.Setenv("NEO4J_URI", "bolt://graph:7687")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "none", cfg.Coref.Strategy)
	assert.Equal(t, 5, cfg.Coref.MaxDistance)
	assert.True(t, cfg.Linking.Enabled)
	assert.Equal(t, "local", cfg.Linking.Strategy)
	assert.Equal(t, "neo4j", cfg.KnowledgeStore.Driver)
	assert.Equal(t, "bolt://graph:7687", cfg.KnowledgeStore.URI)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestInvalidEnvNumbersIgnored(t *testing.T) {
	t.Setenv("COREF_MAX_DISTANCE", "not-a-number")
	t.Setenv("PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Coref.MaxDistance)
	assert.Equal(t, 8080, cfg.Server.Port)
}
