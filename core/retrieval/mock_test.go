package retrieval

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siherrmann/pagegraph/model"
)

// MockSearchIndex is a map backed search index for testing
type MockSearchIndex struct {
	mu      sync.Mutex
	results map[model.Modality][]*model.SearchHit
	errs    map[model.Modality]error
	delay   map[model.Modality]time.Duration
	calls   map[model.Modality]int
	vectors [][]float32
}

func NewMockSearchIndex() *MockSearchIndex {
	return &MockSearchIndex{
		results: map[model.Modality][]*model.SearchHit{},
		errs:    map[model.Modality]error{},
		delay:   map[model.Modality]time.Duration{},
		calls:   map[model.Modality]int{},
	}
}

func (m *MockSearchIndex) respond(ctx context.Context, modality model.Modality) ([]*model.SearchHit, error) {
	m.mu.Lock()
	m.calls[modality]++
	delay := m.delay[modality]
	err := m.errs[modality]
	source := m.results[modality]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	hits := make([]*model.SearchHit, 0, len(source))
	for _, h := range source {
		copied := *h
		hits = append(hits, &copied)
	}
	return hits, nil
}

func (m *MockSearchIndex) Keyword(ctx context.Context, text string, filter model.SearchFilter, top int) ([]*model.SearchHit, error) {
	hits, err := m.respond(ctx, model.ModalityKeyword)
	return limit(hits, top), err
}

func (m *MockSearchIndex) Vector(ctx context.Context, vector []float32, k int, fields []string, filter model.SearchFilter) ([]*model.SearchHit, error) {
	m.mu.Lock()
	m.vectors = append(m.vectors, vector)
	m.mu.Unlock()
	hits, err := m.respond(ctx, model.ModalityVector)
	return limit(hits, k), err
}

func (m *MockSearchIndex) Semantic(ctx context.Context, text string, filter model.SearchFilter, top int) ([]*model.SearchHit, error) {
	hits, err := m.respond(ctx, model.ModalitySemantic)
	return limit(hits, top), err
}

func (m *MockSearchIndex) callCount(modality model.Modality) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[modality]
}

// makeHits returns n hits with chunk ids prefix-0..n-1 and descending scores from top.
func makeHits(prefix string, n int, top float64, modality model.Modality) []*model.SearchHit {
	hits := make([]*model.SearchHit, 0, n)
	for i := 0; i < n; i++ {
		hits = append(hits, &model.SearchHit{
			ChunkID:  fmt.Sprintf("%s-%d", prefix, i),
			PageID:   fmt.Sprintf("page-%s-%d", prefix, i%3),
			Content:  "content",
			Score:    top - float64(i)*0.01,
			Modality: modality,
		})
	}
	return hits
}

// countingEmbedder returns a fixed vector and counts calls.
type countingEmbedder struct {
	calls atomic.Int64
	delay time.Duration
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type mockReranker struct {
	order []string
	err   error
}

func (m *mockReranker) Rerank(ctx context.Context, query string, hits []*model.SearchHit, top int) ([]*model.SearchHit, error) {
	if m.err != nil {
		return nil, m.err
	}
	byID := map[string]*model.SearchHit{}
	for _, h := range hits {
		byID[h.ChunkID] = h
	}
	var out []*model.SearchHit
	for _, id := range m.order {
		if h, ok := byID[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}
