package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/medrag")

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, ":8000", cfg.ServerAddr)
	assert.Equal(t, 4, cfg.RAGCfg.DefaultTopK)
	assert.Equal(t, 20, cfg.RAGCfg.MaxTopK)
	assert.Equal(t, 200, cfg.RAGCfg.PreviewLength)
	assert.Equal(t, "ollama", cfg.LLMCfg.Provider)
	assert.Equal(t, "mistral", cfg.LLMCfg.Model)
	assert.InDelta(t, 0.1, cfg.LLMCfg.Temperature, 1e-6)
	assert.Equal(t, "mxbai-embed-large", cfg.EmbedderCfg.Model)
	assert.Equal(t, 24*time.Hour, cfg.SessionCfg.TTL)
	assert.Equal(t, "medical_chat:", cfg.SessionCfg.KeyPrefix)
	assert.Equal(t, uint(3), cfg.SessionCfg.Retry.Attempts)
}

func TestLoad_Prefixes(t *testing.T) {
	t.Setenv("ENABLE_MOCKS", "true")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_SERVICE_URL", "https://llm.internal")
	t.Setenv("LLM_TOKEN", "key")
	t.Setenv("INDEX_PROVIDER", "qdrant")
	t.Setenv("INDEX_QDRANT_PORT", "7000")
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLMCfg.Provider)
	assert.Equal(t, "https://llm.internal", cfg.LLMCfg.Url)
	assert.Equal(t, "key", cfg.LLMCfg.Token)
	assert.Equal(t, 7000, cfg.IndexCfg.QdrantPort)
	assert.Equal(t, "memory", cfg.SessionCfg.Store)
	assert.Equal(t, 30*time.Minute, cfg.SessionCfg.TTL)
}

func TestLoad_ValidationCollectsErrors(t *testing.T) {
	t.Setenv("RAG_DEFAULT_TOP_K", "50")
	t.Setenv("LLM_TEMPERATURE", "1.5")
	t.Setenv("LLM_PROVIDER", "unknown")
	t.Setenv("SESSION_STORE", "disk")

	_, err := Load("test")
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "RAG_DEFAULT_TOP_K")
	assert.Contains(t, msg, "LLM_TEMPERATURE")
	assert.Contains(t, msg, "LLM_PROVIDER")
	assert.Contains(t, msg, "SESSION_STORE")
	assert.Contains(t, msg, "DATABASE_URL")
}

func TestGetEnvFile(t *testing.T) {
	assert.Equal(t, ".env.prod", getEnvFile("production"))
	assert.Equal(t, ".env.local", getEnvFile("dev"))
	assert.Equal(t, ".env.staging", getEnvFile("staging"))
}
