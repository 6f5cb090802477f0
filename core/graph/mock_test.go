package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/siherrmann/pagegraph/model"
	"github.com/stretchr/testify/assert"
)

// MockGraphStore is a map backed graph store for testing
type MockGraphStore struct {
	mu       sync.Mutex
	titles   map[string]string
	edges    []*model.Edge
	written  map[string]model.NodeMetrics
	failFor  map[string]bool
	edgesErr error
}

func NewMockGraphStore() *MockGraphStore {
	return &MockGraphStore{
		titles:  map[string]string{},
		written: map[string]model.NodeMetrics{},
		failFor: map[string]bool{},
	}
}

func (m *MockGraphStore) addEdge(source, target string, edgeType model.EdgeType) {
	if _, ok := m.titles[source]; !ok {
		m.titles[source] = "Title " + source
	}
	if _, ok := m.titles[target]; !ok {
		m.titles[target] = "Title " + target
	}
	m.edges = append(m.edges, &model.Edge{SourceID: source, TargetID: target, EdgeType: edgeType})
}

func (m *MockGraphStore) ref(id string) model.PageRef {
	return model.PageRef{ID: id, Title: m.titles[id]}
}

func (m *MockGraphStore) SelectEdgesByType(ctx context.Context, edgeType model.EdgeType) ([]*model.Edge, error) {
	if m.edgesErr != nil {
		return nil, m.edgesErr
	}
	var edges []*model.Edge
	for _, e := range m.edges {
		if e.EdgeType == edgeType {
			edges = append(edges, e)
		}
	}
	return edges, nil
}

func (m *MockGraphStore) UpdatePageMetrics(ctx context.Context, metrics model.NodeMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[metrics.PageID] {
		return assert.AnError
	}
	m.written[metrics.PageID] = metrics
	return nil
}

func (m *MockGraphStore) SelectParent(ctx context.Context, pageID string) (*model.PageRef, error) {
	for _, e := range m.edges {
		if e.EdgeType == model.EdgeTypeParentOf && e.TargetID == pageID {
			ref := m.ref(e.SourceID)
			return &ref, nil
		}
	}
	return nil, nil
}

func (m *MockGraphStore) selectRefs(match func(e *model.Edge) (string, bool), limit int) []model.PageRef {
	refs := []model.PageRef{}
	for _, e := range m.edges {
		if id, ok := match(e); ok {
			refs = append(refs, m.ref(id))
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs
}

func (m *MockGraphStore) SelectChildren(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	return m.selectRefs(func(e *model.Edge) (string, bool) {
		return e.TargetID, e.EdgeType == model.EdgeTypeParentOf && e.SourceID == pageID
	}, limit), nil
}

func (m *MockGraphStore) SelectOutgoingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	return m.selectRefs(func(e *model.Edge) (string, bool) {
		return e.TargetID, e.EdgeType == model.EdgeTypeLinksTo && e.SourceID == pageID
	}, limit), nil
}

func (m *MockGraphStore) SelectIncomingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	return m.selectRefs(func(e *model.Edge) (string, bool) {
		return e.SourceID, e.EdgeType == model.EdgeTypeLinksTo && e.TargetID == pageID
	}, limit), nil
}
