package enrich

import (
	"context"
	"sort"
	"sync"

	"github.com/siherrmann/pagegraph/database"
	"github.com/siherrmann/pagegraph/model"
)

// MockGraphStore is a map backed graph store for testing
type MockGraphStore struct {
	mu       sync.Mutex
	pages    map[string]*model.DocumentNode
	parents  map[string]string
	links    map[string][]string
	failWith error
	calls    int
}

func NewMockGraphStore() *MockGraphStore {
	return &MockGraphStore{
		pages:   map[string]*model.DocumentNode{},
		parents: map[string]string{},
		links:   map[string][]string{},
	}
}

func (m *MockGraphStore) addPage(id string, parentID string) {
	m.pages[id] = &model.DocumentNode{ID: id, Title: "Title " + id, SpaceKey: "DOC"}
	if parentID != "" {
		m.parents[id] = parentID
	}
}

func (m *MockGraphStore) addLink(from, to string) {
	m.links[from] = append(m.links[from], to)
}

func (m *MockGraphStore) ref(id string) model.PageRef {
	if p, ok := m.pages[id]; ok {
		return p.Ref()
	}
	return model.PageRef{ID: id}
}

func (m *MockGraphStore) call() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.failWith
}

func limitRefs(ids []string, limit int, ref func(string) model.PageRef) []model.PageRef {
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	refs := []model.PageRef{}
	for _, id := range ids {
		refs = append(refs, ref(id))
	}
	return refs
}

func (m *MockGraphStore) SelectPage(ctx context.Context, id string) (*model.DocumentNode, error) {
	if err := m.call(); err != nil {
		return nil, err
	}
	page, ok := m.pages[id]
	if !ok {
		return nil, database.ErrPageNotFound
	}
	return page, nil
}

func (m *MockGraphStore) SelectParent(ctx context.Context, pageID string) (*model.PageRef, error) {
	if err := m.call(); err != nil {
		return nil, err
	}
	parentID, ok := m.parents[pageID]
	if !ok {
		return nil, nil
	}
	ref := m.ref(parentID)
	return &ref, nil
}

func (m *MockGraphStore) SelectChildren(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	if err := m.call(); err != nil {
		return nil, err
	}
	var ids []string
	for child, parent := range m.parents {
		if parent == pageID {
			ids = append(ids, child)
		}
	}
	return limitRefs(ids, limit, m.ref), nil
}

func (m *MockGraphStore) SelectSiblings(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	if err := m.call(); err != nil {
		return nil, err
	}
	parentID, ok := m.parents[pageID]
	if !ok {
		return []model.PageRef{}, nil
	}
	var ids []string
	for child, parent := range m.parents {
		if parent == parentID && child != pageID {
			ids = append(ids, child)
		}
	}
	return limitRefs(ids, limit, m.ref), nil
}

func (m *MockGraphStore) SelectOutgoingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	if err := m.call(); err != nil {
		return nil, err
	}
	return limitRefs(append([]string(nil), m.links[pageID]...), limit, m.ref), nil
}

func (m *MockGraphStore) SelectIncomingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	if err := m.call(); err != nil {
		return nil, err
	}
	var ids []string
	for from, targets := range m.links {
		for _, to := range targets {
			if to == pageID {
				ids = append(ids, from)
			}
		}
	}
	return limitRefs(ids, limit, m.ref), nil
}

func (m *MockGraphStore) SelectPopularPages(ctx context.Context, spaceKey string, limit int) ([]*model.PopularPage, error) {
	if err := m.call(); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, targets := range m.links {
		for _, to := range targets {
			counts[to]++
		}
	}
	var popular []*model.PopularPage
	for id, count := range counts {
		page, ok := m.pages[id]
		if !ok || (spaceKey != "" && page.SpaceKey != spaceKey) {
			continue
		}
		popular = append(popular, &model.PopularPage{PageRef: page.Ref(), InLinks: count})
	}
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].InLinks != popular[j].InLinks {
			return popular[i].InLinks > popular[j].InLinks
		}
		return popular[i].ID < popular[j].ID
	})
	if len(popular) > limit {
		popular = popular[:limit]
	}
	return popular, nil
}
