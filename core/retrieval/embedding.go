package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/siherrmann/pagegraph/cache"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/model"
	"golang.org/x/sync/singleflight"
)

// ErrEmptyEmbedding is returned when an embedder produces no vector.
var ErrEmptyEmbedding = errors.New("empty embedding")

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedFunc adapts a function to the Embedder interface.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// CachedEmbedder caches embeddings by normalized text. Concurrent misses
// for the same text share one call to the wrapped embedder.
type CachedEmbedder struct {
	embedder Embedder
	store    cache.Store
	ttl      time.Duration
	group    singleflight.Group
	logger   *slog.Logger
}

// NewCachedEmbedder wraps embedder with store. A nil store disables caching.
func NewCachedEmbedder(embedder Embedder, store cache.Store, ttl time.Duration, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{
		embedder: embedder,
		store:    store,
		ttl:      ttl,
		logger:   logger,
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key("embedding", text, model.SearchFilter{})

	if c.store != nil {
		cached, ok, err := cache.GetJSON[[]float32](ctx, c.store, key)
		if err != nil {
			c.logger.Warn("Embedding cache read failed", slog.String("error", err.Error()))
		} else if ok && len(*cached) > 0 {
			return *cached, nil
		}
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		vector, err := c.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(vector) == 0 {
			return nil, ErrEmptyEmbedding
		}

		if c.store != nil {
			if err := cache.SetJSON(ctx, c.store, key, vector, c.ttl); err != nil {
				c.logger.Warn("Embedding cache write failed", slog.String("error", err.Error()))
			}
		}
		return vector, nil
	})
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}

	return value.([]float32), nil
}
