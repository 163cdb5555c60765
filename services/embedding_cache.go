package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"viola-chatbot/internal/ai"
	"viola-chatbot/internal/logger"
	"viola-chatbot/internal/telemetry"
	"viola-chatbot/utils"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// Embedder turns text into a unit-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string, task ai.TaskType) ([]float64, error)
}

// embeddingRow is one row of the cached embeddings artifact.
type embeddingRow struct {
	Text   string    `parquet:"name=texts, type=BYTE_ARRAY, convertedtype=UTF8"`
	Vector []float64 `parquet:"name=vectors, type=LIST, valuetype=DOUBLE"`
}

const (
	CacheSourceArtifact = "cache"
	CacheSourceEmbedded = "embedded"

	// DefaultOpenRetryDelay matches the embedding breaker's open timeout.
	DefaultOpenRetryDelay = 60 * time.Second
	DefaultOpenRetries    = 3
)

// ErrNoEmbeddings means a non-empty corpus produced no vectors at all. The
// existing artifact is left untouched.
var ErrNoEmbeddings = errors.New("embedding cache: every chunk failed to embed")

// CacheOptions configures the embeddings artifact.
type CacheOptions struct {
	Path string
	// Rebuild ignores an existing artifact and re-embeds every chunk.
	Rebuild bool
	// VerifyCorpus rebuilds when the chunk fingerprint stored next to the
	// artifact differs from the current chunks.
	VerifyCorpus bool
	// OpenRetryDelay is the wait before retrying a chunk while the embedding
	// circuit breaker is open. Zero means DefaultOpenRetryDelay.
	OpenRetryDelay time.Duration
	// OpenRetries bounds those retries per chunk. Zero means DefaultOpenRetries.
	OpenRetries int
}

// CacheResult is the (chunk, vector) table after LoadOrBuild, in build order.
type CacheResult struct {
	Texts   []string
	Vectors [][]float64
	Source  string
	Dropped int
	// PersistErr is set when the embeddings were computed but the artifact
	// could not be written. The vectors are still usable.
	PersistErr error
}

// EmbeddingCache persists chunk embeddings in a parquet file with the
// columns "texts" and "vectors".
type EmbeddingCache struct {
	opts     CacheOptions
	embedder Embedder
	metrics  *telemetry.Metrics
}

func NewEmbeddingCache(opts CacheOptions, embedder Embedder, metrics *telemetry.Metrics) *EmbeddingCache {
	if opts.Path == "" {
		opts.Path = "embeddings.parquet"
	}
	if opts.OpenRetryDelay <= 0 {
		opts.OpenRetryDelay = DefaultOpenRetryDelay
	}
	if opts.OpenRetries <= 0 {
		opts.OpenRetries = DefaultOpenRetries
	}
	return &EmbeddingCache{opts: opts, embedder: embedder, metrics: metrics}
}

func (c *EmbeddingCache) Path() string { return c.opts.Path }

// LoadOrBuild returns the artifact contents verbatim when it exists and no
// rebuild is forced, ignoring chunks. Otherwise every chunk is embedded,
// chunks whose embedding fails are dropped, and the survivors are persisted.
// An open circuit breaker is waited out and the same chunk retried; if it
// stays open the build aborts. A build that embeds nothing from a non-empty
// chunk list returns ErrNoEmbeddings and keeps the previous artifact.
func (c *EmbeddingCache) LoadOrBuild(ctx context.Context, chunks []string) (*CacheResult, error) {
	if c.useArtifact(chunks) {
		texts, vectors, err := c.read()
		if err == nil {
			logger.Info("Loaded embeddings from cache", "path", c.opts.Path, "rows", len(texts))
			return &CacheResult{Texts: texts, Vectors: vectors, Source: CacheSourceArtifact}, nil
		}
		logger.Warn("Embeddings cache unreadable, rebuilding", "path", c.opts.Path, "error", err)
	}

	if c.embedder == nil {
		return nil, errors.New("embedding cache: no embedder configured")
	}

	result := &CacheResult{Source: CacheSourceEmbedded}
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vec, err := c.embedChunk(ctx, chunk)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, ai.ErrCircuitOpen) {
				return nil, fmt.Errorf("embed chunk %d: %w", i, err)
			}
			logger.Warn("Dropping chunk with failed embedding", "index", i, "error", err)
			c.metrics.RecordEmbeddingFailure("index")
			result.Dropped++
			continue
		}

		result.Texts = append(result.Texts, chunk)
		result.Vectors = append(result.Vectors, vec)
	}

	if len(chunks) > 0 && len(result.Texts) == 0 {
		logger.Error("No chunk could be embedded, keeping previous cache", "path", c.opts.Path, "chunks", len(chunks))
		return nil, ErrNoEmbeddings
	}

	if err := c.write(result.Texts, result.Vectors); err != nil {
		logger.Error("Failed to persist embeddings cache", "path", c.opts.Path, "error", err)
		result.PersistErr = err
	} else if c.opts.VerifyCorpus {
		if err := os.WriteFile(c.fingerprintPath(), []byte(utils.CorpusFingerprint(chunks)), 0o644); err != nil {
			logger.Warn("Failed to write corpus fingerprint", "path", c.fingerprintPath(), "error", err)
		}
	}

	logger.Info("Built embeddings",
		"path", c.opts.Path,
		"chunks", len(chunks),
		"embedded", len(result.Texts),
		"dropped", result.Dropped,
	)

	return result, nil
}

// embedChunk retries while the breaker is open instead of letting the open
// state drop every remaining chunk.
func (c *EmbeddingCache) embedChunk(ctx context.Context, chunk string) ([]float64, error) {
	for attempt := 0; ; attempt++ {
		vec, err := c.embedder.Embed(ctx, chunk, ai.TaskRetrievalDocument)
		if err == nil || !errors.Is(err, ai.ErrCircuitOpen) || attempt >= c.opts.OpenRetries {
			return vec, err
		}

		logger.Warn("Embedding circuit open, waiting before retry",
			"attempt", attempt+1,
			"delay", c.opts.OpenRetryDelay.String(),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.opts.OpenRetryDelay):
		}
	}
}

func (c *EmbeddingCache) useArtifact(chunks []string) bool {
	if c.opts.Rebuild {
		return false
	}
	if _, err := os.Stat(c.opts.Path); err != nil {
		return false
	}
	if !c.opts.VerifyCorpus {
		return true
	}

	stored, err := os.ReadFile(c.fingerprintPath())
	if err != nil {
		logger.Info("No corpus fingerprint next to embeddings cache, rebuilding", "path", c.fingerprintPath())
		return false
	}
	if strings.TrimSpace(string(stored)) != utils.CorpusFingerprint(chunks) {
		logger.Info("Corpus changed since embeddings cache was built, rebuilding", "path", c.opts.Path)
		return false
	}
	return true
}

func (c *EmbeddingCache) fingerprintPath() string {
	return c.opts.Path + ".sha256"
}

func (c *EmbeddingCache) read() ([]string, [][]float64, error) {
	fr, err := local.NewLocalFileReader(c.opts.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(embeddingRow), 1)
	if err != nil {
		return nil, nil, fmt.Errorf("read cache schema: %w", err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	texts := make([]string, 0, num)
	vectors := make([][]float64, 0, num)
	if num == 0 {
		return texts, vectors, nil
	}

	rows := make([]embeddingRow, num)
	if err := pr.Read(&rows); err != nil {
		return nil, nil, fmt.Errorf("read cache rows: %w", err)
	}

	for _, row := range rows {
		texts = append(texts, row.Text)
		vectors = append(vectors, row.Vector)
	}
	return texts, vectors, nil
}

// write replaces the artifact atomically so a concurrent reader never sees
// a partially written file.
func (c *EmbeddingCache) write(texts []string, vectors [][]float64) error {
	if dir := filepath.Dir(c.opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := c.opts.Path + ".tmp"
	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(embeddingRow), 1)
	if err != nil {
		fw.Close()
		os.Remove(tmp)
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range texts {
		if err := pw.Write(embeddingRow{Text: texts[i], Vector: vectors[i]}); err != nil {
			fw.Close()
			os.Remove(tmp)
			return fmt.Errorf("write cache row %d: %w", i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(tmp)
		return fmt.Errorf("finalize cache: %w", err)
	}
	if err := fw.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, c.opts.Path)
}
