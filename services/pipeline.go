package services

import (
	"viola-chatbot/internal/config"
	"viola-chatbot/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

// NewIndexBuilderFromConfig wires the PDF extractor, normalizer, chunker and
// embeddings cache from cfg. A non-nil rdb adds the cross-process build lock.
func NewIndexBuilderFromConfig(cfg *config.Config, embedder Embedder, rdb *redis.Client, metrics *telemetry.Metrics) (*IndexBuilder, error) {
	normalizer, err := NewNormalizer()
	if err != nil {
		return nil, err
	}

	cache := NewEmbeddingCache(CacheOptions{
		Path:         cfg.EmbeddingsCachePath,
		Rebuild:      cfg.RebuildEmbeddings,
		VerifyCorpus: cfg.CacheVerifyCorpus,
	}, embedder, metrics)

	opts := []IndexBuilderOption{WithMetrics(metrics)}
	if rdb != nil {
		opts = append(opts, WithLocker(NewBuildLock(rdb, cache.Path())))
	}

	return NewIndexBuilder(NewPDFExtractor(), normalizer, NewChunker(cfg.ChunkSize), cache, opts...), nil
}
