package retrieval

import (
	"context"
	"log/slog"
	"slices"

	"github.com/siherrmann/pagegraph/model"
)

// Reranker orders hits by relevance to the query and returns at most top.
type Reranker interface {
	Rerank(ctx context.Context, query string, hits []*model.SearchHit, top int) ([]*model.SearchHit, error)
}

// Rerank reorders hits with the configured reranker. Without a reranker,
// on error or on an empty answer the hits are ordered by score instead.
func (r *Retriever) Rerank(ctx context.Context, query string, hits []*model.SearchHit, top int) []*model.SearchHit {
	if len(hits) == 0 {
		return nil
	}
	if top <= 0 || top > len(hits) {
		top = len(hits)
	}

	if r.reranker != nil {
		ctx, span := tracer.Start(ctx, "retrieval.Rerank")
		reranked, err := r.reranker.Rerank(ctx, query, hits, top)
		span.End()
		if err == nil && len(reranked) > 0 {
			return limit(reranked, top)
		}
		if err != nil {
			r.logger.Warn("Rerank failed, using score order", slog.String("error", err.Error()))
		}
	}

	return ScoreRerank(hits, top)
}

// ScoreRerank returns the top hits by descending score without changing
// the input slice.
func ScoreRerank(hits []*model.SearchHit, top int) []*model.SearchHit {
	sorted := slices.Clone(hits)
	SortByScore(sorted)
	return limit(sorted, top)
}
