package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"viola-chatbot/internal/ai"
	"viola-chatbot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corpus = "Sjukpenning kan betalas ut om du är sjuk.  Bostadsbidrag kan sökas av unga (pdf, 120 kB). " +
	"Föräldrapenning betalas ut i 480 dagar. Sjukpenning beräknas på din inkomst."

func newTestBuilder(t *testing.T, source TextSource, emb Embedder, opts CacheOptions, builderOpts ...IndexBuilderOption) *IndexBuilder {
	t.Helper()
	if opts.Path == "" {
		opts.Path = filepath.Join(t.TempDir(), "embeddings.parquet")
	}
	n, err := NewNormalizer()
	require.NoError(t, err)
	return NewIndexBuilder(source, n, NewChunker(60), NewEmbeddingCache(opts, emb, nil), builderOpts...)
}

func TestBuild_EndToEnd(t *testing.T) {
	emb := &fakeEmbedder{}
	b := newTestBuilder(t, &staticSource{text: corpus}, emb, CacheOptions{})

	index, err := b.Build(context.Background(), "data_pdf")
	require.NoError(t, err)

	assert.Equal(t, 4, index.Len())
	assert.Equal(t, 4, emb.Calls())

	q, err := emb.Embed(context.Background(), "hur länge betalas föräldrapenning ut", ai.TaskRetrievalQuery)
	require.NoError(t, err)
	top := index.Search(q, 1)
	require.Len(t, top, 1)
	assert.Contains(t, top[0], "Föräldrapenning")

	for _, e := range index.entries {
		assert.NotContains(t, e.Text, "kB")
	}
}

func TestBuild_ExistingCacheSkipsEmbedding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.parquet")

	_, err := newTestBuilder(t, &staticSource{text: corpus}, &fakeEmbedder{}, CacheOptions{Path: path}).
		Build(context.Background(), "data_pdf")
	require.NoError(t, err)

	emb := &fakeEmbedder{}
	index, err := newTestBuilder(t, &staticSource{text: corpus}, emb, CacheOptions{Path: path, Rebuild: false}).
		Build(context.Background(), "data_pdf")
	require.NoError(t, err)

	assert.Zero(t, emb.Calls())
	assert.Equal(t, 4, index.Len())
}

func TestBuild_EmptyCorpusYieldsEmptyIndex(t *testing.T) {
	b := newTestBuilder(t, NewPDFExtractor(), &fakeEmbedder{}, CacheOptions{})

	index, err := b.Build(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Zero(t, index.Len())
	assert.Empty(t, index.Search([]float64{1, 0}, 5))
}

func TestBuild_MissingEmbedderIsConfigurationError(t *testing.T) {
	b := newTestBuilder(t, &staticSource{text: corpus}, nil, CacheOptions{})

	_, err := b.Build(context.Background(), "data_pdf")

	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

func TestOnce_BuildsExactlyOnce(t *testing.T) {
	src := &staticSource{text: corpus}
	emb := &fakeEmbedder{}
	b := newTestBuilder(t, src, emb, CacheOptions{})

	var wg sync.WaitGroup
	results := make([]*VectorIndex, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := b.Once(context.Background(), "data_pdf")
			assert.NoError(t, err)
			results[i] = idx
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 4, emb.Calls())
	for _, idx := range results {
		assert.Same(t, results[0], idx)
	}
}

type countingLocker struct {
	acquired, released int
	err                error
}

func (l *countingLocker) Acquire(context.Context) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func() { l.released++ }, nil
}

func TestBuild_UsesLocker(t *testing.T) {
	lock := &countingLocker{}
	b := newTestBuilder(t, &staticSource{text: corpus}, &fakeEmbedder{}, CacheOptions{}, WithLocker(lock))

	_, err := b.Build(context.Background(), "data_pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)

	failing := &countingLocker{err: errors.New("redis down")}
	_, err = newTestBuilder(t, &staticSource{text: corpus}, &fakeEmbedder{}, CacheOptions{}, WithLocker(failing)).
		Build(context.Background(), "data_pdf")
	assert.Error(t, err)
}
