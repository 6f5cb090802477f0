package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/siherrmann/pagegraph/model"
)

// MockSearcher is a map backed searcher for testing
type MockSearcher struct {
	mu          sync.Mutex
	hits        map[string][]*model.SearchHit
	keywordHits []*model.SearchHit
	block       bool
	delay       time.Duration
	retrieves   int
	keywords    int
	active      int
	maxActive   int
}

func NewMockSearcher() *MockSearcher {
	return &MockSearcher{hits: map[string][]*model.SearchHit{}}
}

func (m *MockSearcher) Retrieve(ctx context.Context, query string, filter model.SearchFilter) []*model.SearchHit {
	m.mu.Lock()
	m.retrieves++
	m.active++
	m.maxActive = max(m.maxActive, m.active)
	block, delay := m.block, m.delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if block {
		<-ctx.Done()
		return nil
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[query]
}

func (m *MockSearcher) KeywordOnly(ctx context.Context, query string, filter model.SearchFilter, top int) []*model.SearchHit {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keywords++
	return m.keywordHits
}

func (m *MockSearcher) Rerank(ctx context.Context, query string, hits []*model.SearchHit, top int) []*model.SearchHit {
	sorted := append([]*model.SearchHit(nil), hits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if top > 0 && len(sorted) > top {
		sorted = sorted[:top]
	}
	return sorted
}

func (m *MockSearcher) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retrieves, m.keywords
}

// MockLanguageModel is a scripted language model for testing
type MockLanguageModel struct {
	mu             sync.Mutex
	classification *model.Classification
	classifyErr    error
	answers        []string
	synthesizeErr  error
	risks          []model.Risk
	verifyErr      error
	synthesized    [][]model.ContextBlock
	verifies       int
}

func (m *MockLanguageModel) Classify(ctx context.Context, query string) (*model.Classification, error) {
	if m.classifyErr != nil {
		return nil, m.classifyErr
	}
	if m.classification == nil {
		return &model.Classification{Kind: model.ClassificationAtomic}, nil
	}
	copied := *m.classification
	return &copied, nil
}

func (m *MockLanguageModel) Synthesize(ctx context.Context, query string, blocks []model.ContextBlock) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.synthesizeErr != nil {
		return "", m.synthesizeErr
	}
	i := len(m.synthesized)
	m.synthesized = append(m.synthesized, blocks)
	if i < len(m.answers) {
		return m.answers[i], nil
	}
	return fmt.Sprintf("answer %d", i+1), nil
}

func (m *MockLanguageModel) Verify(ctx context.Context, answer string, blocks []model.ContextBlock) (*model.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	risk := model.RiskLow
	if m.verifies < len(m.risks) {
		risk = m.risks[m.verifies]
	}
	m.verifies++
	return &model.Verification{Risk: risk, Confidence: 0.9}, nil
}

// MockEnricher returns fixed ancestors per page
type MockEnricher struct {
	ancestors map[string][]model.PageRef
	children  map[string][]model.PageRef
}

func (m *MockEnricher) Enrich(ctx context.Context, pageID string, partial *model.EnrichedContext) *model.EnrichedContext {
	enriched := *partial
	enriched.Ancestors = m.ancestors[pageID]
	enriched.Children = m.children[pageID]
	enriched.BoostedConfidence = min(partial.BaseConfidence*1.05, 1.0)
	return &enriched
}

func (m *MockEnricher) Breadcrumb(ctx context.Context, pageID string) ([]model.PageRef, error) {
	return append(append([]model.PageRef(nil), m.ancestors[pageID]...), model.PageRef{ID: pageID, Title: "Title " + pageID}), nil
}

// MockFeedbackStore records feedback writes
type MockFeedbackStore struct {
	mu    sync.Mutex
	pages map[string]*model.DocumentNode
	edges []*model.Edge
	err   error
}

func NewMockFeedbackStore() *MockFeedbackStore {
	return &MockFeedbackStore{pages: map[string]*model.DocumentNode{}}
}

func (m *MockFeedbackStore) UpsertPage(ctx context.Context, page *model.DocumentNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.pages[page.ID] = page
	return nil
}

func (m *MockFeedbackStore) UpsertEdge(ctx context.Context, edge *model.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	return nil
}

func pageHits(pageID string, scores ...float64) []*model.SearchHit {
	hits := make([]*model.SearchHit, 0, len(scores))
	for i, score := range scores {
		hits = append(hits, &model.SearchHit{
			ChunkID: fmt.Sprintf("%s-c%d", pageID, i),
			PageID:  pageID,
			Title:   "Title " + pageID,
			Content: "content of " + pageID,
			Score:   score,
		})
	}
	return hits
}
