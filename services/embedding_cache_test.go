package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"viola-chatbot/internal/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrBuild_EmbedsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")
	emb := &fakeEmbedder{}
	cache := NewEmbeddingCache(CacheOptions{Path: path}, emb, nil)

	chunks := []string{"Sjukpenning betalas ut.", "Bostadsbidrag för unga.", "Föräldrapenning i 480 dagar."}
	res, err := cache.LoadOrBuild(context.Background(), chunks)
	require.NoError(t, err)

	assert.Equal(t, CacheSourceEmbedded, res.Source)
	assert.Equal(t, chunks, res.Texts)
	assert.Len(t, res.Vectors, 3)
	assert.NoError(t, res.PersistErr)
	assert.Equal(t, 3, emb.Calls())
	assert.FileExists(t, path)
	assert.NoFileExists(t, path+".tmp")
}

func TestLoadOrBuild_CacheHitNeverEmbeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")
	chunks := []string{"Första.", "Andra.", "Tredje."}

	built, err := NewEmbeddingCache(CacheOptions{Path: path}, &fakeEmbedder{}, nil).LoadOrBuild(context.Background(), chunks)
	require.NoError(t, err)

	emb := &fakeEmbedder{}
	res, err := NewEmbeddingCache(CacheOptions{Path: path}, emb, nil).
		LoadOrBuild(context.Background(), []string{"helt andra chunks"})
	require.NoError(t, err)

	assert.Zero(t, emb.Calls())
	assert.Equal(t, CacheSourceArtifact, res.Source)
	assert.Equal(t, built.Texts, res.Texts)
	require.Len(t, res.Vectors, len(built.Vectors))
	for i := range built.Vectors {
		assert.InDeltaSlice(t, built.Vectors[i], res.Vectors[i], 1e-12)
	}
}

func TestLoadOrBuild_RebuildIgnoresArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")
	_, err := NewEmbeddingCache(CacheOptions{Path: path}, &fakeEmbedder{}, nil).LoadOrBuild(context.Background(), []string{"Gammal."})
	require.NoError(t, err)

	emb := &fakeEmbedder{}
	res, err := NewEmbeddingCache(CacheOptions{Path: path, Rebuild: true}, emb, nil).
		LoadOrBuild(context.Background(), []string{"Ny.", "Nyare."})
	require.NoError(t, err)

	assert.Equal(t, 2, emb.Calls())
	assert.Equal(t, []string{"Ny.", "Nyare."}, res.Texts)
}

func TestLoadOrBuild_DropsFailedChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")
	emb := &fakeEmbedder{failOn: map[string]bool{"Trasig.": true}}

	res, err := NewEmbeddingCache(CacheOptions{Path: path}, emb, nil).
		LoadOrBuild(context.Background(), []string{"Hel.", "Trasig.", "Också hel."})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel.", "Också hel."}, res.Texts)
	assert.Len(t, res.Vectors, 2)
	assert.Equal(t, 1, res.Dropped)

	reloaded, err := NewEmbeddingCache(CacheOptions{Path: path}, &fakeEmbedder{}, nil).LoadOrBuild(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, res.Texts, reloaded.Texts)
}

func TestLoadOrBuild_VerifyCorpusDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")
	opts := CacheOptions{Path: path, VerifyCorpus: true}

	_, err := NewEmbeddingCache(opts, &fakeEmbedder{}, nil).LoadOrBuild(context.Background(), []string{"Version ett."})
	require.NoError(t, err)
	assert.FileExists(t, path+".sha256")

	same := &fakeEmbedder{}
	_, err = NewEmbeddingCache(opts, same, nil).LoadOrBuild(context.Background(), []string{"Version ett."})
	require.NoError(t, err)
	assert.Zero(t, same.Calls())

	changed := &fakeEmbedder{}
	res, err := NewEmbeddingCache(opts, changed, nil).LoadOrBuild(context.Background(), []string{"Version två."})
	require.NoError(t, err)
	assert.Equal(t, 1, changed.Calls())
	assert.Equal(t, []string{"Version två."}, res.Texts)
}

func TestLoadOrBuild_UnreadableArtifactIsRebuilt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")
	require.NoError(t, os.WriteFile(path, []byte("not parquet"), 0o644))

	emb := &fakeEmbedder{}
	res, err := NewEmbeddingCache(CacheOptions{Path: path}, emb, nil).LoadOrBuild(context.Background(), []string{"Text."})
	require.NoError(t, err)

	assert.Equal(t, 1, emb.Calls())
	assert.Equal(t, CacheSourceEmbedded, res.Source)
}

func TestLoadOrBuild_EmptyChunksWritesEmptyArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")

	res, err := NewEmbeddingCache(CacheOptions{Path: path}, &fakeEmbedder{}, nil).LoadOrBuild(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Texts)

	reloaded, err := NewEmbeddingCache(CacheOptions{Path: path}, &fakeEmbedder{}, nil).LoadOrBuild(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, CacheSourceArtifact, reloaded.Source)
	assert.Empty(t, reloaded.Texts)
}

func TestLoadOrBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbeddingCache(CacheOptions{Path: filepath.Join(t.TempDir(), "e.parquet")}, &fakeEmbedder{}, nil).
		LoadOrBuild(ctx, []string{"a."})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoadOrBuild_WaitsOutOpenBreaker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")
	emb := &fakeEmbedder{openCalls: 2}
	opts := CacheOptions{Path: path, OpenRetryDelay: time.Millisecond, OpenRetries: 3}

	chunks := []string{"Sjukpenning.", "Barnbidrag.", "Bostadsbidrag."}
	res, err := NewEmbeddingCache(opts, emb, nil).LoadOrBuild(context.Background(), chunks)
	require.NoError(t, err)

	assert.Equal(t, chunks, res.Texts)
	assert.Zero(t, res.Dropped)
	assert.Equal(t, 5, emb.Calls())
}

func TestLoadOrBuild_PersistentlyOpenBreakerAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")
	_, err := NewEmbeddingCache(CacheOptions{Path: path}, &fakeEmbedder{}, nil).
		LoadOrBuild(context.Background(), []string{"Gammal ett.", "Gammal två."})
	require.NoError(t, err)

	emb := &fakeEmbedder{openCalls: 1000}
	opts := CacheOptions{Path: path, Rebuild: true, OpenRetryDelay: time.Millisecond, OpenRetries: 2}
	_, err = NewEmbeddingCache(opts, emb, nil).LoadOrBuild(context.Background(), []string{"Ny."})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrCircuitOpen))
	assert.Equal(t, 3, emb.Calls())

	kept, err := NewEmbeddingCache(CacheOptions{Path: path}, &fakeEmbedder{}, nil).LoadOrBuild(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gammal ett.", "Gammal två."}, kept.Texts)
}

func TestLoadOrBuild_TotalOutageKeepsPreviousArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")
	_, err := NewEmbeddingCache(CacheOptions{Path: path}, &fakeEmbedder{}, nil).
		LoadOrBuild(context.Background(), []string{"Gammal ett.", "Gammal två."})
	require.NoError(t, err)

	down := &fakeEmbedder{err: &ai.EmbeddingError{Op: "request", Err: errors.New("quota exceeded")}}
	_, err = NewEmbeddingCache(CacheOptions{Path: path, Rebuild: true}, down, nil).
		LoadOrBuild(context.Background(), []string{"Ny ett.", "Ny två."})
	assert.ErrorIs(t, err, ErrNoEmbeddings)
	assert.Equal(t, 2, down.Calls())

	kept, err := NewEmbeddingCache(CacheOptions{Path: path}, &fakeEmbedder{}, nil).LoadOrBuild(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, CacheSourceArtifact, kept.Source)
	assert.Equal(t, []string{"Gammal ett.", "Gammal två."}, kept.Texts)
	assert.Len(t, kept.Vectors, 2)
}
