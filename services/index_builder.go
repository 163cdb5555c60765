package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"viola-chatbot/internal/config"
	"viola-chatbot/internal/logger"
	"viola-chatbot/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// IndexBuilder runs extraction, normalization, chunking and the cache-aware
// embedding step, and fills a VectorIndex.
type IndexBuilder struct {
	source     TextSource
	normalizer *Normalizer
	chunker    *Chunker
	cache      *EmbeddingCache
	lock       Locker
	metrics    *telemetry.Metrics

	// mu serializes Build within the process; lock extends that across processes.
	mu sync.Mutex

	once  sync.Once
	index *VectorIndex
	err   error
}

// IndexBuilderOption customizes an IndexBuilder.
type IndexBuilderOption func(*IndexBuilder)

// WithLocker serializes builds across processes, typically with a BuildLock.
func WithLocker(l Locker) IndexBuilderOption {
	return func(b *IndexBuilder) { b.lock = l }
}

func WithMetrics(m *telemetry.Metrics) IndexBuilderOption {
	return func(b *IndexBuilder) { b.metrics = m }
}

func NewIndexBuilder(source TextSource, normalizer *Normalizer, chunker *Chunker, cache *EmbeddingCache, opts ...IndexBuilderOption) *IndexBuilder {
	b := &IndexBuilder{
		source:     source,
		normalizer: normalizer,
		chunker:    chunker,
		cache:      cache,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Once builds the index on the first call and returns the same index (or
// error) on every later call, regardless of folder.
func (b *IndexBuilder) Once(ctx context.Context, folder string) (*VectorIndex, error) {
	b.once.Do(func() {
		b.index, b.err = b.Build(ctx, folder)
	})
	return b.index, b.err
}

// Build constructs a fresh index from folder. A missing or empty folder
// yields an empty index; a missing embedder is a configuration error.
func (b *IndexBuilder) Build(ctx context.Context, folder string) (*VectorIndex, error) {
	if b.cache == nil || b.cache.embedder == nil {
		return nil, &config.ConfigurationError{Field: "embedder", Reason: "is not configured"}
	}

	ctx, span := otel.Tracer("index-builder").Start(ctx, "index.build")
	defer span.End()
	span.SetAttributes(attribute.String("index.folder", folder))

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lock != nil {
		release, err := b.lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire index build lock: %w", err)
		}
		defer release()
	}

	start := time.Now()

	extracted, err := b.source.ExtractFolder(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("extract corpus: %w", err)
	}

	chunks := b.chunker.ChunkText(b.normalizer.Normalize(extracted.Text))

	cached, err := b.cache.LoadOrBuild(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	if len(cached.Texts) != len(cached.Vectors) {
		return nil, errors.New("embeddings cache: texts and vectors length mismatch")
	}

	index := NewVectorIndex()
	for i, text := range cached.Texts {
		index.Add(text, cached.Vectors[i])
	}

	duration := time.Since(start)
	b.metrics.RecordIndexBuild(duration.Seconds(), cached.Source)
	span.SetAttributes(
		attribute.Int("index.chunks", len(chunks)),
		attribute.Int("index.entries", index.Len()),
		attribute.String("index.source", cached.Source),
	)

	logger.Info("Vector index ready",
		"folder", folder,
		"chunks", len(chunks),
		"entries", index.Len(),
		"dropped", cached.Dropped,
		"source", cached.Source,
		"duration_ms", duration.Milliseconds(),
	)

	return index, nil
}
