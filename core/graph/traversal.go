package graph

import (
	"context"
	"log/slog"

	"github.com/siherrmann/pagegraph/model"
)

// TraversalStore answers single hop traversal queries on the page graph.
// "child of" is answered by SelectParent.
type TraversalStore interface {
	SelectParent(ctx context.Context, pageID string) (*model.PageRef, error)
	SelectChildren(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
	SelectOutgoingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
	SelectIncomingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
}

// Traverser runs multi hop traversals on top of a TraversalStore.
type Traverser struct {
	store    TraversalStore
	maxDepth int
	logger   *slog.Logger
}

// NewTraverser creates a traverser. maxDepth bounds ancestor walks,
// values <= 0 select 50.
func NewTraverser(store TraversalStore, maxDepth int, logger *slog.Logger) *Traverser {
	if maxDepth <= 0 {
		maxDepth = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Traverser{store: store, maxDepth: maxDepth, logger: logger}
}

// Ancestors follows "child of" until a page without parent and returns the
// ancestors ordered root to leaf, excluding the page itself. A cycle or an
// exceeded depth bound stops the walk with a warning.
func (t *Traverser) Ancestors(ctx context.Context, pageID string) ([]model.PageRef, error) {
	seen := map[string]bool{pageID: true}
	var reversed []model.PageRef

	current := pageID
	for len(reversed) < t.maxDepth {
		parent, err := t.store.SelectParent(ctx, current)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		if seen[parent.ID] {
			t.logger.Warn("Cycle in page hierarchy",
				slog.String("page_id", pageID),
				slog.String("repeated_id", parent.ID),
			)
			break
		}
		seen[parent.ID] = true
		reversed = append(reversed, *parent)
		current = parent.ID
	}

	if len(reversed) == t.maxDepth {
		t.logger.Warn("Ancestor walk reached depth bound", slog.String("page_id", pageID), slog.Int("max_depth", t.maxDepth))
	}

	ancestors := make([]model.PageRef, len(reversed))
	for i, ref := range reversed {
		ancestors[len(reversed)-1-i] = ref
	}
	return ancestors, nil
}

// Neighbors returns the pages one hop away over hierarchy and link edges
// in both directions, without duplicates.
func (t *Traverser) Neighbors(ctx context.Context, pageID string) ([]model.PageRef, error) {
	var neighbors []model.PageRef
	seen := map[string]bool{pageID: true}
	add := func(refs ...model.PageRef) {
		for _, ref := range refs {
			if !seen[ref.ID] {
				seen[ref.ID] = true
				neighbors = append(neighbors, ref)
			}
		}
	}

	parent, err := t.store.SelectParent(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		add(*parent)
	}

	children, err := t.store.SelectChildren(ctx, pageID, 0)
	if err != nil {
		return nil, err
	}
	add(children...)

	outgoing, err := t.store.SelectOutgoingLinks(ctx, pageID, 0)
	if err != nil {
		return nil, err
	}
	add(outgoing...)

	incoming, err := t.store.SelectIncomingLinks(ctx, pageID, 0)
	if err != nil {
		return nil, err
	}
	add(incoming...)

	return neighbors, nil
}

// FindPath returns the shortest page path from one page to another within
// maxHops, both ends included, or nil if there is none.
func (t *Traverser) FindPath(ctx context.Context, fromID, toID string, maxHops int) ([]model.PageRef, error) {
	if fromID == toID {
		return []model.PageRef{{ID: fromID}}, nil
	}

	type step struct {
		ref  model.PageRef
		path []model.PageRef
	}

	visited := map[string]bool{fromID: true}
	queue := []step{{ref: model.PageRef{ID: fromID}, path: []model.PageRef{{ID: fromID}}}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if len(current.path)-1 >= maxHops {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		neighbors, err := t.Neighbors(ctx, current.ref.ID)
		if err != nil {
			return nil, err
		}

		for _, neighbor := range neighbors {
			if visited[neighbor.ID] {
				continue
			}
			visited[neighbor.ID] = true

			newPath := make([]model.PageRef, len(current.path), len(current.path)+1)
			copy(newPath, current.path)
			newPath = append(newPath, neighbor)

			if neighbor.ID == toID {
				return newPath, nil
			}
			queue = append(queue, step{ref: neighbor, path: newPath})
		}
	}

	return nil, nil
}
