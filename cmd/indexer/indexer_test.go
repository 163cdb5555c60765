package main

import (
	"testing"

	"viola-chatbot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	cfg := &config.Config{CorpusDir: "data_pdf", EmbeddingsCachePath: "embeddings.parquet", RebuildEmbeddings: true}

	require.NoError(t, indexCmd.Flags().Parse([]string{"--corpus", "other_pdf"}))
	applyFlags(indexCmd, cfg)

	assert.Equal(t, "other_pdf", cfg.CorpusDir)
	assert.Equal(t, "embeddings.parquet", cfg.EmbeddingsCachePath)
	assert.True(t, cfg.RebuildEmbeddings)

	require.NoError(t, indexCmd.Flags().Parse([]string{"--rebuild=false", "--cache", "/tmp/e.parquet"}))
	applyFlags(indexCmd, cfg)

	assert.False(t, cfg.RebuildEmbeddings)
	assert.Equal(t, "/tmp/e.parquet", cfg.EmbeddingsCachePath)
}
