package retrieval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/siherrmann/pagegraph/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("Second call is served from cache", func(t *testing.T) {
		inner := &countingEmbedder{}
		embedder := NewCachedEmbedder(inner, cache.NewMemoryStore(time.Minute), time.Minute, nil)

		first, err := embedder.Embed(ctx, "How to install")
		require.NoError(t, err, "Expected Embed to not return an error")
		second, err := embedder.Embed(ctx, "  how to INSTALL ")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int64(1), inner.calls.Load(), "Expected normalized text to hit the cache")
	})

	t.Run("Concurrent misses share one call", func(t *testing.T) {
		inner := &countingEmbedder{delay: 50 * time.Millisecond}
		embedder := NewCachedEmbedder(inner, cache.NewMemoryStore(time.Minute), time.Minute, nil)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := embedder.Embed(ctx, "same text")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), inner.calls.Load())
	})

	t.Run("Errors are not cached", func(t *testing.T) {
		inner := &countingEmbedder{err: assert.AnError}
		embedder := NewCachedEmbedder(inner, cache.NewMemoryStore(time.Minute), time.Minute, nil)

		_, err := embedder.Embed(ctx, "text")
		assert.ErrorIs(t, err, assert.AnError)
		_, err = embedder.Embed(ctx, "text")
		assert.Error(t, err)
		assert.Equal(t, int64(2), inner.calls.Load())
	})

	t.Run("Empty vector is an error", func(t *testing.T) {
		embedder := NewCachedEmbedder(EmbedFunc(func(ctx context.Context, text string) ([]float32, error) {
			return nil, nil
		}), nil, time.Minute, nil)

		_, err := embedder.Embed(ctx, "text")
		assert.ErrorIs(t, err, ErrEmptyEmbedding)
	})
}
