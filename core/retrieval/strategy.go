package retrieval

import (
	"context"
	"fmt"

	"github.com/siherrmann/pagegraph/model"
)

// Strategy retrieves hits for a query.
type Strategy interface {
	Retrieve(ctx context.Context, query string, filter model.SearchFilter) []*model.SearchHit
}

// ProgressiveStrategy escalates keyword, vector and semantic search.
type ProgressiveStrategy struct {
	retriever *Retriever
}

// NewProgressiveStrategy creates a progressive strategy.
func NewProgressiveStrategy(retriever *Retriever) *ProgressiveStrategy {
	return &ProgressiveStrategy{retriever: retriever}
}

func (s *ProgressiveStrategy) Retrieve(ctx context.Context, query string, filter model.SearchFilter) []*model.SearchHit {
	return s.retriever.Retrieve(ctx, query, filter)
}

// HybridStrategy runs all phases at once.
type HybridStrategy struct {
	retriever *Retriever
}

// NewHybridStrategy creates a hybrid strategy.
func NewHybridStrategy(retriever *Retriever) *HybridStrategy {
	return &HybridStrategy{retriever: retriever}
}

func (s *HybridStrategy) Retrieve(ctx context.Context, query string, filter model.SearchFilter) []*model.SearchHit {
	return s.retriever.RetrieveHybrid(ctx, query, filter)
}

// KeywordStrategy only runs lexical search.
type KeywordStrategy struct {
	retriever *Retriever
	top       int
}

// NewKeywordStrategy creates a keyword strategy returning at most top hits.
func NewKeywordStrategy(retriever *Retriever, top int) *KeywordStrategy {
	return &KeywordStrategy{retriever: retriever, top: top}
}

func (s *KeywordStrategy) Retrieve(ctx context.Context, query string, filter model.SearchFilter) []*model.SearchHit {
	return s.retriever.KeywordOnly(ctx, query, filter, s.top)
}

// NewStrategy returns the strategy registered under name.
func NewStrategy(name string, retriever *Retriever) (Strategy, error) {
	switch name {
	case "", "progressive":
		return NewProgressiveStrategy(retriever), nil
	case "hybrid":
		return NewHybridStrategy(retriever), nil
	case "keyword":
		return NewKeywordStrategy(retriever, 0), nil
	}
	return nil, fmt.Errorf("unknown retrieval strategy %q", name)
}
