package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RECOLLECT_DATABASE_URL", "postgres://localhost/recollect")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.SearchTopK)
	assert.Equal(t, float32(0.75), cfg.SearchMinScore)
	assert.Equal(t, 768, cfg.EmbeddingDimensions)
	assert.Equal(t, 5*time.Second, cfg.JobPollInterval)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("RECOLLECT_DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RECOLLECT_DATABASE_URL", "postgres://localhost/recollect")
	t.Setenv("RECOLLECT_PORT", "9090")
	t.Setenv("RECOLLECT_CHUNK_SIZE", "1000")
	t.Setenv("RECOLLECT_CHUNK_OVERLAP", "100")
	t.Setenv("RECOLLECT_OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.True(t, cfg.HasOpenAI())
}

func TestValidate_RejectsDimensionsMismatchingSchema(t *testing.T) {
	t.Setenv("RECOLLECT_DATABASE_URL", "postgres://localhost/recollect")
	t.Setenv("RECOLLECT_EMBEDDING_DIMENSIONS", "1536")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding dimensions")
}

func TestValidate_RejectsOverlapNotSmallerThanSize(t *testing.T) {
	t.Setenv("RECOLLECT_DATABASE_URL", "postgres://localhost/recollect")
	t.Setenv("RECOLLECT_CHUNK_SIZE", "200")
	t.Setenv("RECOLLECT_CHUNK_OVERLAP", "200")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk overlap")
}
